package domain

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is the result of a successful login.
type Session struct {
	Bearer    string    `json:"Bearer"`
	ExpiresIn int       `json:"expires_in"`
	Identity  *Identity `json:"identity"`
}
