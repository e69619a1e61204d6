package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"

	// RequestIDKey is the fiber locals key the request identifier is stored
	// under; the access logger reads it via ${locals:request_id}.
	RequestIDKey = "request_id"
)

// RequestID ensures each request carries a stable identifier: inbound values
// are kept, missing ones generated, and the result is echoed on the response
// and exposed to downstream handlers.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDHeader, reqID)
		c.Locals(RequestIDKey, reqID)

		return c.Next()
	}
}
