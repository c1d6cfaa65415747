package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gwa2100/dndnotus/internal/auth"
	"github.com/gwa2100/dndnotus/internal/dto"
	"github.com/gwa2100/dndnotus/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles login, register and logout.
type AuthHandler struct {
	sessions     auth.Sessions
	userSvc      *service.UserService
	sessionTTL   time.Duration
	cookieSecure bool
}

// NewAuthHandler returns a new AuthHandler.
func NewAuthHandler(sessions auth.Sessions, userSvc *service.UserService, sessionTTL time.Duration, cookieSecure bool) *AuthHandler {
	return &AuthHandler{sessions: sessions, userSvc: userSvc, sessionTTL: sessionTTL, cookieSecure: cookieSecure}
}

// LoginForm renders the login page.
func (h *AuthHandler) LoginForm(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{"Username": "", "Next": c.Query("next")})
}

// Login authenticates the form credentials and, on success, creates a
// session and redirects to the originally requested page. Failures re-show
// the form with a generic message.
func (h *AuthHandler) Login(c *gin.Context) {
	var form dto.LoginForm
	_ = c.ShouldBind(&form)

	user, err := h.userSvc.ValidateCredentials(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.HTML(http.StatusOK, "login.html", gin.H{
				"Error":    "Invalid username or password.",
				"Username": form.Username,
				"Next":     form.Next,
			})
			return
		}
		c.HTML(http.StatusInternalServerError, "login.html", gin.H{
			"Error": "Login failed, try again.", "Username": form.Username, "Next": form.Next,
		})
		return
	}

	sessionID, err := h.sessions.Create(c.Request.Context(), user.ID)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "login.html", gin.H{
			"Error": "Login failed, try again.", "Username": form.Username, "Next": form.Next,
		})
		return
	}
	c.SetCookie(auth.CookieName, sessionID, int(h.sessionTTL.Seconds()), "/", "", h.cookieSecure, true)
	c.Redirect(http.StatusSeeOther, safeNext(form.Next))
}

// RegisterForm renders the registration page.
func (h *AuthHandler) RegisterForm(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", gin.H{"Username": ""})
}

// Register creates a user and redirects to the login page. A taken username
// re-shows the form with an error instead of surfacing a storage failure.
func (h *AuthHandler) Register(c *gin.Context) {
	var form dto.RegisterForm
	_ = c.ShouldBind(&form)

	_, err := h.userSvc.Register(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.HTML(http.StatusOK, "register.html", gin.H{
				"Error":    "Username and password are required.",
				"Username": form.Username,
			})
		case errors.Is(err, service.ErrUsernameTaken):
			c.HTML(http.StatusOK, "register.html", gin.H{
				"Error":    "Username already taken.",
				"Username": form.Username,
			})
		default:
			c.HTML(http.StatusInternalServerError, "register.html", gin.H{
				"Error": "Registration failed, try again.", "Username": form.Username,
			})
		}
		return
	}
	c.Redirect(http.StatusSeeOther, "/login")
}

// Logout clears the session and returns to the login page.
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, err := c.Cookie(auth.CookieName)
	if err == nil && sessionID != "" {
		_ = h.sessions.Delete(c.Request.Context(), sessionID)
	}
	c.SetCookie(auth.CookieName, "", -1, "/", "", h.cookieSecure, true)
	c.Redirect(http.StatusSeeOther, "/login")
}

// safeNext only honors local absolute paths; anything else goes home.
// Guards against open redirects via the next parameter.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") {
		return next
	}
	return "/"
}
