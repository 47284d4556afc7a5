package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/estatecrm/pkg/errors"
	"github.com/charlesng35/estatecrm/pkg/logger"
	"github.com/charlesng35/estatecrm/pkg/response"
)

// Recovery turns a handler panic into a 500 envelope and logs the stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			logger.WithModule("http").Error("handler panic",
				zap.String("method", c.Request.Method),
				zap.String("route", routeOf(c)),
				zap.String("user_id", c.GetString(CtxUserIDKey)),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			if !c.Writer.Written() {
				response.Error(c, errors.ErrInternalServer.WithInternal(fmt.Errorf("panic: %v", r)))
			}
			c.Abort()
		}()
		c.Next()
	}
}

// NotFoundHandler answers unknown routes with the JSON envelope instead of gin's text body.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, errors.ErrNotFound.WithMessage(fmt.Sprintf("route %s %s not found", c.Request.Method, c.Request.URL.Path)))
}
