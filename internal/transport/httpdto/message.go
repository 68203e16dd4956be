package httpdto

type SendMessageRequest struct {
	Content   string `json:"content" binding:"required"`
	ClientRef string `json:"client_ref"`
}

type RecordInquiryRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}
