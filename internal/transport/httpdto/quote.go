package httpdto

// Quantity and unit price travel as strings so commercial amounts stay
// exact; they are parsed into decimals at the service boundary.
type CreateQuoteRequest struct {
	ProductName string `json:"product_name" binding:"required"`
	Quantity    string `json:"quantity" binding:"required"`
	UnitPrice   string `json:"unit_price" binding:"required"`
	Currency    string `json:"currency"`
	Notes       string `json:"notes"`
}

type RespondQuoteRequest struct {
	Decision string `json:"decision" binding:"required"`
}
