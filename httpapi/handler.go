package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/session"
	"github.com/MrEthical07/goAccount/token"
)

// Accounts is the engine surface the handlers call. *goAccount.Engine
// implements it.
type Accounts interface {
	Register(ctx context.Context, email, password, name, locale string) error
	VerifyEmail(ctx context.Context, value string, kind token.Kind) error
	Login(ctx context.Context, email, password string, remember bool) (*goAccount.LoginResult, error)
	Autologin(ctx context.Context, rememberToken string) (*goAccount.AutologinResult, error)
	Logout(ctx context.Context, sessionToken, rememberToken string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, value string, kind token.Kind, code, newPassword string) error
	ValidateSession(ctx context.Context, value string) (*session.Session, error)
}

var _ Accounts = (*goAccount.Engine)(nil)

// CookieConfig shapes the remember-token cookie. It is always HttpOnly.
type CookieConfig struct {
	Name     string        `koanf:"name"`
	Path     string        `koanf:"path"`
	Domain   string        `koanf:"domain"`
	Secure   bool          `koanf:"secure"`
	SameSite http.SameSite `koanf:"-"`
}

func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:     "goaccount_remember",
		Path:     "/",
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

type AccountHandler struct {
	accounts Accounts
	cookie   CookieConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewAccountHandler(accounts Accounts, cookie CookieConfig, logger *slog.Logger) *AccountHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountHandler{accounts: accounts, cookie: cookie, logger: logger, now: time.Now}
}

func (h *AccountHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}

	if err := h.accounts.Register(c.Request.Context(), req.Email, req.Password, req.Name, req.Locale); err != nil {
		h.fail(c, "register", err)
		return
	}
	c.JSON(http.StatusCreated, statusResponse{Status: "registered"})
}

func (h *AccountHandler) VerifyEmail(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}
	kind, err := token.ParseKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid token kind"})
		return
	}

	if err := h.accounts.VerifyEmail(c.Request.Context(), req.Token, kind); err != nil {
		h.fail(c, "verify_email", err)
		return
	}
	c.JSON(http.StatusOK, statusResponse{Status: "verified"})
}

func (h *AccountHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}

	res, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password, req.Remember)
	if err != nil {
		h.fail(c, "login", err)
		return
	}
	h.writeLogin(c, res)
}

// Autologin reads the remember cookie. A missing or stale cookie answers 200
// with status "warn" and clears the cookie.
func (h *AccountHandler) Autologin(c *gin.Context) {
	value, _ := c.Cookie(h.cookie.Name)

	res, err := h.accounts.Autologin(c.Request.Context(), value)
	if err != nil {
		h.clearRememberCookie(c)
		h.fail(c, "autologin", err)
		return
	}
	if res.Status != goAccount.AutologinOK {
		if value != "" {
			h.clearRememberCookie(c)
		}
		c.JSON(http.StatusOK, statusResponse{Status: string(res.Status)})
		return
	}
	h.writeLogin(c, res.Login)
}

func (h *AccountHandler) Logout(c *gin.Context) {
	value, _ := c.Cookie(h.cookie.Name)

	if err := h.accounts.Logout(c.Request.Context(), c.GetHeader(SessionHeader), value); err != nil {
		h.fail(c, "logout", err)
		return
	}
	h.clearRememberCookie(c)
	c.JSON(http.StatusOK, statusResponse{Status: "logged_out"})
}

func (h *AccountHandler) RequestPasswordReset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}

	if err := h.accounts.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.fail(c, "password_reset_request", err)
		return
	}
	c.JSON(http.StatusOK, statusResponse{Status: "ok"})
}

func (h *AccountHandler) ResetPassword(c *gin.Context) {
	var req resetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}

	err := h.accounts.ResetPassword(c.Request.Context(), req.Token, token.KindReset, req.Code, req.Password)
	if err != nil {
		h.fail(c, "password_reset_confirm", err)
		return
	}
	c.JSON(http.StatusOK, statusResponse{Status: "password_reset"})
}

// Me answers for the session RequireSession resolved.
func (h *AccountHandler) Me(c *gin.Context) {
	sess := SessionFromContext(c)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, meResponse{
		UserID:    sess.UserID.String(),
		Email:     sess.Email,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (h *AccountHandler) writeLogin(c *gin.Context, res *goAccount.LoginResult) {
	if res.RememberToken != "" {
		h.setRememberCookie(c, res.RememberToken, res.RememberExpiresAt)
	} else {
		h.clearRememberCookie(c)
	}
	c.JSON(http.StatusOK, loginResponse{
		Status:           string(goAccount.AutologinOK),
		SessionToken:     res.SessionToken,
		SessionExpiresAt: res.SessionExpiresAt,
		Remembered:       res.RememberToken != "",
		User: userResponse{
			ID:     res.User.ID.String(),
			Email:  res.User.Email,
			Name:   res.User.Name,
			Locale: res.User.Locale,
		},
	})
}

func (h *AccountHandler) fail(c *gin.Context, op string, err error) {
	if goAccount.Category(err) == goAccount.CategoryInternal {
		h.logger.ErrorContext(c.Request.Context(), "account request failed", "op", op, "error", err)
	}
	writeError(c, err)
}

func (h *AccountHandler) setRememberCookie(c *gin.Context, value string, expiresAt time.Time) {
	maxAge := int(expiresAt.Sub(h.now()).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	c.SetSameSite(h.cookie.SameSite)
	c.SetCookie(h.cookie.Name, value, maxAge, h.cookie.Path, h.cookie.Domain, h.cookie.Secure, true)
}

func (h *AccountHandler) clearRememberCookie(c *gin.Context) {
	c.SetSameSite(h.cookie.SameSite)
	c.SetCookie(h.cookie.Name, "", -1, h.cookie.Path, h.cookie.Domain, h.cookie.Secure, true)
}
