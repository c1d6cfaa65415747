package dto

// LoginForm is the form body for POST /login. Next carries the originally
// requested URL so login can send the user back to it.
type LoginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
	Next     string `form:"next"`
}

// RegisterForm is the form body for POST /register.
type RegisterForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}
