// Package ops exposes a small in-process health and stats endpoint for
// the bot binary. The pipeline itself has no network surface; this is
// operational plumbing only.
package ops

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// Counters tracks pipeline activity since process start. All methods are
// safe for concurrent use.
type Counters struct {
	scrapes atomic.Int64
	gated   atomic.Int64
	failed  atomic.Int64
}

func (c *Counters) Scrape() { c.scrapes.Add(1) }
func (c *Counters) Gated()  { c.gated.Add(1) }
func (c *Counters) Failed() { c.failed.Add(1) }

// Server serves /healthz and /stats.
type Server struct {
	counters  *Counters
	startTime time.Time
}

// NewServer creates an ops server over the shared counters.
func NewServer(counters *Counters, startTime time.Time) *Server {
	return &Server{counters: counters, startTime: startTime}
}

// Handler builds the gin engine. Release mode; this endpoint is not a
// user surface.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"uptime": time.Since(s.startTime).Round(time.Second).String(),
		})
	})

	r.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"scrapes_total":  s.counters.scrapes.Load(),
			"scrapes_gated":  s.counters.gated.Load(),
			"scrapes_failed": s.counters.failed.Load(),
			"uptime":         time.Since(s.startTime).Round(time.Second).String(),
		})
	})

	return r
}
