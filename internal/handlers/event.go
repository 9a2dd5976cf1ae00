package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/event-mirror-service/internal/device"
	"github.com/PratikDhanave/event-mirror-service/internal/models"
	"github.com/PratikDhanave/event-mirror-service/internal/query"
)

// EventQuerier is implemented by query.Engine.
type EventQuerier interface {
	QueryEvents(ctx context.Context, f query.Filter) ([]models.Event, error)
}

// FrameSource is implemented by device.Formatter.
type FrameSource interface {
	Latest(ctx context.Context, layout string) (device.Frame, error)
}

// RegisterEventRoutes registers the read endpoints over mirrored events.
//
// GET /events?name=&cols=&from=&to=&last=
// - from/to are exclusive bounds: epoch ms or a date string read in loc
// - last returns the single newest match as an object, or an empty body
//
// GET /events/arduino
// - newest tracked event as a device frame, empty body when none exists
func RegisterEventRoutes(r gin.IRoutes, q EventQuerier, frames FrameSource, loc *time.Location) {
	r.GET("/events", func(c *gin.Context) {
		f := query.ParseFilter(c.Request.URL.Query(), loc)

		evs, err := q.QueryEvents(c.Request.Context(), f)
		if err != nil {
			errorJSON(c, err)
			return
		}
		c.Set(RowsKey, len(evs))

		if !f.LatestOnly {
			c.JSON(http.StatusOK, evs)
			return
		}
		if len(evs) != 1 {
			c.Status(http.StatusOK)
			return
		}
		c.JSON(http.StatusOK, evs[0])
	})

	r.GET("/events/arduino", func(c *gin.Context) {
		frame, err := frames.Latest(c.Request.Context(), device.LayoutCompact)
		if errors.Is(err, device.ErrNoData) {
			c.Status(http.StatusOK)
			return
		}
		if err != nil {
			errorJSON(c, err)
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=us-ascii", frame.Encode())
	})
}

// RowsKey is the context key under which handlers record result sizes for
// the request log.
const RowsKey = "rows"

// errorJSON writes the error object clients expect: {"Error": "<message>"}.
func errorJSON(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"Error": err.Error()})
}
