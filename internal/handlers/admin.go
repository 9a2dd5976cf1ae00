package handlers

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// TimeLayout is the human readable server time returned by /time.
const TimeLayout = time.RFC1123Z

// Admin carries the operational hooks behind the admin endpoints.
type Admin struct {
	// Clear deletes all stored events and resets the watermark.
	Clear func(ctx context.Context) (int64, error)
	// Stop begins graceful shutdown.
	Stop      func()
	StopDelay time.Duration
	Now       func() time.Time
}

// RegisterAdminRoutes registers the root banner, /time, /clear and /stop.
func RegisterAdminRoutes(r gin.IRoutes, a Admin) {
	if a.Now == nil {
		a.Now = time.Now
	}

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Event mirror server is working @ %s", boundAddr(c))
	})

	r.GET("/time", func(c *gin.Context) {
		c.String(http.StatusOK, a.Now().Format(TimeLayout))
	})

	r.GET("/clear", func(c *gin.Context) {
		n, err := a.Clear(c.Request.Context())
		if err != nil {
			errorJSON(c, err)
			return
		}
		c.Set(RowsKey, int(n))
		c.String(http.StatusOK, "REST API Query @ %s: Cleared data", a.Now().Format("02-01-2006 15:04:05"))
	})

	// The response is flushed before shutdown starts.
	r.GET("/stop", func(c *gin.Context) {
		c.String(http.StatusOK, "Stopping server.....")
		if a.Stop != nil {
			time.AfterFunc(a.StopDelay, a.Stop)
		}
	})
}

// boundAddr is the local address the request arrived on, falling back to
// the Host header when the server did not record one.
func boundAddr(c *gin.Context) string {
	if addr, ok := c.Request.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
		return addr.String()
	}
	return c.Request.Host
}
