package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/MacJediWizard/railsdash/internal/dashboard"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// StatsService computes the dashboard summary.
type StatsService interface {
	Stats(ctx context.Context) dashboard.StatsResult
}

// StatsSnapshots serves precomputed summaries. Implemented by
// dashboard.Refresher.
type StatsSnapshots interface {
	Latest() (dashboard.StatsResult, bool)
	RunNow() dashboard.StatsResult
}

// StatsFeed streams summaries over a websocket.
type StatsFeed interface {
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
}

// DashboardHandler handles dashboard HTTP endpoints.
type DashboardHandler struct {
	stats     StatsService
	snapshots StatsSnapshots
	feed      StatsFeed
	logger    zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler. snapshots and feed
// may be nil.
func NewDashboardHandler(stats StatsService, snapshots StatsSnapshots, feed StatsFeed, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		stats:     stats,
		snapshots: snapshots,
		feed:      feed,
		logger:    logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// RegisterRoutes registers dashboard routes on the given router group.
func (h *DashboardHandler) RegisterRoutes(r *gin.RouterGroup) {
	d := r.Group("/dashboard")
	{
		d.GET("/stats", h.Stats)
		if h.feed != nil {
			d.GET("/stats/ws", h.StatsFeed)
		}
	}
}

// Stats returns the dashboard summary. It always answers 200; degraded
// results carry isMockData. The latest scheduled snapshot is served unless
// refresh=true is given.
// GET /api/dashboard/stats
func (h *DashboardHandler) Stats(c *gin.Context) {
	refresh, _ := strconv.ParseBool(c.Query("refresh"))

	if h.snapshots != nil {
		if !refresh {
			if latest, ok := h.snapshots.Latest(); ok {
				c.JSON(http.StatusOK, latest)
				return
			}
		}
		c.JSON(http.StatusOK, h.snapshots.RunNow())
		return
	}

	c.JSON(http.StatusOK, h.stats.Stats(c.Request.Context()))
}

// StatsFeed upgrades to a websocket streaming every refreshed summary.
// GET /api/dashboard/stats/ws
func (h *DashboardHandler) StatsFeed(c *gin.Context) {
	h.feed.HandleWebSocket(c.Writer, c.Request)
}
