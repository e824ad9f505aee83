package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/shopcart/internal/service"
)

const sessionMaxAge = 7 * 24 * 3600

type AuthHTTP struct {
	S      service.AuthService
	secure bool
}

func NewAuthHTTP(s service.AuthService, secureCookie bool) *AuthHTTP {
	return &AuthHTTP{S: s, secure: secureCookie}
}

type registerReq struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHTTP) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if _, err := h.S.Register(c.Request.Context(), req.Fullname, req.Email, req.Password); err != nil {
		fail(c, err)
		return
	}
	message(c, http.StatusOK, "User registered successfully")
}

func (h *AuthHTTP) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	u, token, err := h.S.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	// bearer token for API clients, cookie for the browser
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, sessionMaxAge, "/", "", h.secure, true)
	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"user":       u,
		"token":      token,
		"token_type": "Bearer",
	})
}

func (h *AuthHTTP) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", h.secure, true)
	message(c, http.StatusOK, "Logged out")
}

func (h *AuthHTTP) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"id": c.GetUint(ctxUserID)})
}
