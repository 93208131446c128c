package dto

// LoginRequest carries the dashboard credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse returns the session API key.
type LoginResponse struct {
	APIKey string `json:"api_key"`
}
