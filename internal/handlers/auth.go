package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"minichat/internal/auth"
	"minichat/internal/models"
	"minichat/internal/telemetry"
)

// Authenticator is the identity provider.
type Authenticator interface {
	CreateAccount(ctx context.Context, email, password string) (models.Identity, error)
	SignIn(ctx context.Context, email, password string) (models.Identity, error)
	SignInWithProvider(ctx context.Context, providerToken string) (models.Identity, error)
}

// Limiter decides whether another attempt for key is allowed.
type Limiter interface {
	Allow(key string) bool
}

// AuthHandler exposes the identity provider.
type AuthHandler struct {
	auth    Authenticator
	limiter Limiter
	audit   *telemetry.AuditEmitter
}

// NewAuthHandler builds an AuthHandler. limiter and audit may be nil.
func NewAuthHandler(authenticator Authenticator, limiter Limiter, audit *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{auth: authenticator, limiter: limiter, audit: audit}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignUp creates an email/password account.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.allow(c, req.Email) {
		return
	}

	identity, err := h.auth.CreateAccount(c.Request.Context(), req.Email, req.Password)
	h.respond(c, "sign_up", identity, err, http.StatusCreated)
}

// SignIn checks email/password credentials.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.allow(c, req.Email) {
		return
	}

	identity, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	h.respond(c, "sign_in", identity, err, http.StatusOK)
}

// SignInWithProvider exchanges a single-sign-on token.
func (h *AuthHandler) SignInWithProvider(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.allow(c, "") {
		return
	}

	identity, err := h.auth.SignInWithProvider(c.Request.Context(), req.Token)
	h.respond(c, "sign_in_sso", identity, err, http.StatusOK)
}

func (h *AuthHandler) allow(c *gin.Context, email string) bool {
	if h.limiter == nil {
		return true
	}
	key := "ip:" + c.ClientIP()
	if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
		key = "email:" + email
	}
	if !h.limiter.Allow(key) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "auth: too many attempts, try again later"})
		return false
	}
	return true
}

func (h *AuthHandler) respond(c *gin.Context, action string, identity models.Identity, err error, okStatus int) {
	ctx := c.Request.Context()
	if err != nil {
		status := authErrorStatus(err)
		if status == http.StatusInternalServerError {
			c.JSON(status, gin.H{"error": "auth: internal error"})
		} else {
			c.JSON(status, gin.H{"error": err.Error()})
		}
		h.audit.Emit(ctx, "WARN", action, err.Error(), "")
		return
	}

	h.audit.Emit(ctx, "INFO", action, "ok", identity.UID)
	c.JSON(okStatus, identity)
}

func authErrorStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrProviderDisabled):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrEmailInUse):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidProviderToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
