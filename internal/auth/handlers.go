package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers exposes the auth endpoints.
type Handlers struct {
	service *Service
}

// NewHandlers creates auth HTTP handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes wires the public auth endpoints.
func (h *Handlers) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
}

// RegisterProtectedRoutes wires endpoints that require a valid token.
func (h *Handlers) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.Me)
}

// Register handles POST /api/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "VALIDATION_ERROR", "message": err.Error()})
		return
	}

	resp, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login handles POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "VALIDATION_ERROR", "message": err.Error()})
		return
	}

	resp, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me handles GET /api/auth/me
func (h *Handlers) Me(c *gin.Context) {
	profile, err := h.service.Profile(c.Request.Context(), GetUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": NewProfileResponse(profile)})
}

func (h *Handlers) writeError(c *gin.Context, err error) {
	authErr, ok := err.(AuthError)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR", "message": "something went wrong"})
		return
	}

	status := http.StatusBadRequest
	switch authErr.Code {
	case ErrInvalidCredentials.Code, ErrInvalidToken.Code, ErrTokenExpired.Code, ErrUnauthorized.Code:
		status = http.StatusUnauthorized
	case ErrEmailExists.Code:
		status = http.StatusConflict
	case ErrUserNotFound.Code:
		status = http.StatusNotFound
	case ErrWeakPassword.Code:
		status = http.StatusUnprocessableEntity
	}

	c.JSON(status, gin.H{"error": authErr.Code, "message": authErr.Message})
}
