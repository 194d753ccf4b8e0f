package apperrors

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// GinErrorHandler writes structured errors to gin responses.
type GinErrorHandler struct {
	Logger *zap.Logger
}

// Handle aborts the request with the public form of err. Internal errors are
// logged with their cause.
func (h *GinErrorHandler) Handle(c *gin.Context, err error) {
	public := Public(err)
	if public.Kind == Internal && h.Logger != nil {
		h.Logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(HTTPStatus(public.Kind), ErrorResponse{Error: public})
}
