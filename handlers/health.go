package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/bugtracker/bug-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

const readinessCheckTimeout = 2 * time.Second

// RegisterHealth registers liveness (/health) and readiness (/ready).
// /ready returns 200 only when every check passes; unconfigured dependencies
// should simply be left out of checks.
func RegisterHealth(r gin.IRouter, checks map[string]Check, started time.Time) {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := make(map[string]bool, len(names))
		for _, name := range names {
			ctx, cancel := context.WithTimeout(c.Request.Context(), readinessCheckTimeout)
			err := checks[name](ctx)
			cancel()
			deps[name] = err == nil
			if err != nil {
				ready = false
				logger.Warnf("readiness: %s unavailable: %v", name, err)
			}
		}

		body := gin.H{"deps": deps, "uptime": time.Since(started).Round(time.Second).String()}
		if !ready {
			body["status"] = "not_ready"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "ready"
		c.JSON(http.StatusOK, body)
	})
}
