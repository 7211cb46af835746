package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Recover turns a panicking handler into a 500 so one bad upload cannot take
// down the process. The panic value is logged, never returned to the client.
func Recover(l *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				rid, _ := c.Locals(RequestIDLocalKey).(string)
				l.Error("handler panic",
					zap.String("request_id", rid),
					zap.String("path", c.Path()),
					zap.String("panic", fmt.Sprint(r)),
				)
				err = fiber.ErrInternalServerError
			}
		}()
		return c.Next()
	}
}
