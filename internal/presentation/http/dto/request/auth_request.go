package request

// LoginRequest authenticates an operator on this terminal.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Pin      string `json:"pin" binding:"required"`
}
