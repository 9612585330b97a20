package http

import (
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

// requireAuth resolves the bearer token to a user id and stores it on the context.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.Replace(c.GetHeader("Authorization"), "Bearer ", "", 1))
		if token == "" {
			abortWithError(c, domain.NewError(domain.KindUnauthorized, "Token required"))
			return
		}
		userID, err := s.deps.Tokens.Verify(token)
		if err != nil {
			abortWithError(c, domain.NewError(domain.KindInvalidToken, "Invalid token"))
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// requestLogger logs each request and records request metrics labelled by route template.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		if m := s.deps.Metrics; m != nil {
			m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
			m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		}

		attrs := []any{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration", elapsed,
		}
		if uid := currentUser(c); uid != "" {
			attrs = append(attrs, "user_id", uid)
		}
		switch {
		case status >= 500:
			s.logger.Error("request", attrs...)
		case status >= 400:
			s.logger.Warn("request", attrs...)
		default:
			s.logger.Debug("request", attrs...)
		}
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error("panic serving request", "panic", recovered, "path", c.Request.URL.Path)
		abortWithError(c, domain.NewError(domain.KindServerError, "Internal server error"))
	})
}
