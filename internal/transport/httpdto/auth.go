package httpdto

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	Role        string `json:"role" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreateProfileRequest struct {
	Name   string `json:"name" binding:"required"`
	Region string `json:"region"`
	About  string `json:"about"`
}

type ProfileView struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
	About  string `json:"about,omitempty"`
}
