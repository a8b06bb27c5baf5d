package middleware

import (
	"strconv"
	"strings"
	"time"

	"ecochain/logger"
	"ecochain/metrics"
	"ecochain/utils"

	"github.com/gofiber/fiber/v2"
)

// shouldSkip returns true for probe and scrape paths.
func shouldSkip(path string) bool {
	for _, skip := range []string{"/metrics", "/health"} {
		if strings.HasPrefix(path, skip) {
			return true
		}
	}
	return false
}

// RequestLogger queues a sanitized copy of every API exchange on the async logger.
func RequestLogger(asyncLogger *logger.AsyncLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if shouldSkip(c.Path()) {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		userID := ""
		if claims, ok := CurrentUser(c); ok {
			userID = claims.UserID
		}
		asyncLogger.Log(utils.CreateSanitizedLogEntry(c, userID, time.Since(start)))
		return err
	}
}

// Metrics counts requests and records their latency by route template.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if shouldSkip(c.Path()) {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		status := strconv.Itoa(c.Response().StatusCode())
		metrics.HTTPRequests.WithLabelValues(c.Method(), route, status).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}
