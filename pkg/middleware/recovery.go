package middleware

import (
	"github.com/armysmp/storefront/pkg/common"
	"github.com/armysmp/storefront/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var panicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "storefront_http_panics_total",
	Help: "Handler panics recovered, by route template",
}, []string{"route"})

// Recovery turns a handler panic into a 500 carrying the request id, so a
// customer report can be matched to the logged stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			route := routeLabel(c)
			panicsTotal.WithLabelValues(route).Inc()
			logger.WithContext(c.Request.Context()).Error("Handler panicked",
				zap.Any("panic", rec),
				zap.String("route", route),
				zap.String("method", c.Request.Method),
				zap.Stack("stack"),
			)

			appErr := common.NewInternalError("internal server error", nil)
			if id := c.GetString(CorrelationIDKey); id != "" {
				appErr.WithDetail("request_id", id)
			}
			common.AppErrorResponse(c, appErr)
			c.Abort()
		}()

		c.Next()
	}
}

// routeLabel is the matched route template, or "unmatched" for 404s
func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
