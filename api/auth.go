package api

import (
	"net/http"

	"github.com/ecozelo/agenda/internal/auth"
	"github.com/gin-gonic/gin"
)

const adminCookie = "admin_token"

type AuthHandler struct {
	sessions *auth.Manager
}

type loginRequest struct {
	Password string `json:"password"`
}

func NewAuthHandler(sessions *auth.Manager) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

func (h *AuthHandler) Register(router *gin.RouterGroup) {
	router.POST("/admin/login", h.login)
	router.POST("/admin/logout", h.logout)
	router.GET("/admin/session", h.check)
}

func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, ok, err := h.sessions.Login(c.Request.Context(), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	c.SetCookie(adminCookie, token, int(h.sessions.TTL().Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

func (h *AuthHandler) logout(c *gin.Context) {
	token, _ := c.Cookie(adminCookie)
	if err := h.sessions.Logout(c.Request.Context(), token); err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(adminCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"authenticated": false})
}

func (h *AuthHandler) check(c *gin.Context) {
	token, _ := c.Cookie(adminCookie)
	ok, err := h.sessions.Verify(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": ok})
}

// RequireAdmin gates a route group behind a valid admin session cookie.
func RequireAdmin(sessions *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(adminCookie)
		ok, err := sessions.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}
