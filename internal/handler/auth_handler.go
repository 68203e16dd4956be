package handler

import (
	"database/sql"
	"net/http"

	"agrilink/internal/domain/identity"
	"agrilink/internal/repository"
	"agrilink/internal/services"
	"agrilink/internal/transport/httpdto"
	"agrilink/pkg/logger"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth      *services.AuthService
	directory repository.ProfileDirectory
	log       *logger.Logger
}

func NewAuthHandler(auth *services.AuthService, directory repository.ProfileDirectory, log *logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, directory: directory, log: log}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req httpdto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	resp, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Role:        identity.Role(req.Role),
		DisplayName: req.DisplayName,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(resp))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req httpdto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}

// CreateProfile completes onboarding for the caller's role. Until this
// exists the principal cannot take part in connections.
func (h *AuthHandler) CreateProfile(c *gin.Context) {
	var req httpdto.CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	principal, ok := services.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	profile := &identity.Profile{
		UserID: principal.UserID,
		Role:   principal.Role,
		Name:   req.Name,
	}
	if req.Region != "" {
		profile.Region = sql.NullString{String: req.Region, Valid: true}
	}
	if req.About != "" {
		profile.About = sql.NullString{String: req.About, Valid: true}
	}

	if err := h.directory.CreateProfile(c.Request.Context(), profile); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(profileView(*profile)))
}

func (h *AuthHandler) MyProfile(c *gin.Context) {
	principal, ok := services.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	profile, err := h.directory.GetByUser(c.Request.Context(), principal.UserID, principal.Role)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(profileView(profile)))
}

func profileView(p identity.Profile) httpdto.ProfileView {
	return httpdto.ProfileView{
		ID:     p.ID.String(),
		UserID: p.UserID.String(),
		Role:   string(p.Role),
		Name:   p.Name,
		Region: p.Region.String,
		About:  p.About.String,
	}
}
