package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"example.com/shopcart/internal/service"
)

const (
	ctxUserID       = "userID"
	ctxRequestID    = "requestID"
	headerRequestID = "X-Request-ID"
	sessionCookie   = "session"
)

// RequestLogger logs one line per request and tags it with a request id,
// reusing the caller's X-Request-ID when present.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := c.GetHeader(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(ctxRequestID, rid)
		c.Header(headerRequestID, rid)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", rid),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if uid := c.GetUint(ctxUserID); uid != 0 {
			fields = append(fields, zap.Uint("user_id", uid))
		}
		switch {
		case status >= http.StatusInternalServerError:
			zap.L().Error("http request", fields...)
		case status >= http.StatusBadRequest:
			zap.L().Warn("http request", fields...)
		default:
			zap.L().Info("http request", fields...)
		}
	}
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Next()
}

// AuthRequired accepts a bearer token, or the session cookie set at login,
// and puts the user id into the context.
func AuthRequired(auth service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tok string
		if ah := c.GetHeader("Authorization"); strings.HasPrefix(ah, "Bearer ") {
			tok = strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))
		}
		if tok == "" {
			if v, err := c.Cookie(sessionCookie); err == nil {
				tok = v
			}
		}
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Login required"})
			return
		}
		uid, err := auth.ParseToken(tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid session"})
			return
		}
		c.Set(ctxUserID, uid)
		c.Next()
	}
}

// resolveUser checks a client-supplied user id against the session. An
// absent id means the session user. On failure the response is written and
// ok is false.
func resolveUser(c *gin.Context, claimed interface{}) (uint, bool) {
	uid := c.GetUint(ctxUserID)
	if s, isStr := claimed.(string); claimed == nil || (isStr && strings.TrimSpace(s) == "") {
		return uid, true
	}
	id, err := cast.ToUintE(claimed)
	if err != nil {
		badRequest(c, "userId must be a positive integer")
		return 0, false
	}
	if id != uid {
		message(c, http.StatusForbidden, "userId does not match the session")
		return 0, false
	}
	return uid, true
}
