package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// writeError renders err as {"error": {code, message, status}}. Errors that
// are not domain errors are reported as a generic server error.
func writeError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	message := "Internal server error"
	var de *domain.Error
	if errors.As(err, &de) && de.Message != "" {
		message = de.Message
	}
	c.JSON(kind.Status(), gin.H{"error": errorBody{
		Code:    kind.Code(),
		Message: message,
		Status:  kind.Status(),
	}})
}

func abortWithError(c *gin.Context, err error) {
	writeError(c, err)
	c.Abort()
}

// fail logs server-side failures and writes the error response.
func (s *Server) fail(c *gin.Context, err error) {
	if domain.KindOf(err).Status() >= 500 {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	writeError(c, err)
}

// bindJSON decodes the request body into v. An empty body leaves v untouched.
func bindJSON(c *gin.Context, v any) error {
	if c.Request.Body == nil || c.Request.Body == http.NoBody || c.Request.ContentLength == 0 {
		return nil
	}
	err := c.ShouldBindJSON(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return domain.WrapError(domain.KindInvalidRequest, "Invalid JSON body", err)
}
