package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// clientIP returns the caller address, preferring proxy headers
func clientIP(c *fiber.Ctx) string {
	if cfIP := strings.TrimSpace(c.Get("CF-Connecting-IP")); cfIP != "" {
		return cfIP
	}
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	return c.IP()
}

// requestHeaders copies the fasthttp request headers into a net/http header set.
func requestHeaders(c *fiber.Ctx) http.Header {
	headers := http.Header{}
	for name, values := range c.GetReqHeaders() {
		for _, v := range values {
			headers.Add(name, v)
		}
	}
	return headers
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
