package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-ventilation/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// NewApp returns a Fiber app with the middleware stack and the handler's
// routes registered.
func NewApp(h *Handler, bodyLimitMB int) *fiber.App {
	if bodyLimitMB < 1 {
		bodyLimitMB = 32
	}
	app := fiber.New(fiber.Config{
		AppName:               "statement-ventilation",
		BodyLimit:             bodyLimitMB << 20,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(requestContext(h.Log))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	h.Register(app)
	return app
}

// requestContext tags each request with an id and a request-scoped logger,
// then logs the outcome.
func requestContext(base zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		began := time.Now()

		id := c.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)

		log := base.With().Str("request_id", id).Logger()
		c.SetUserContext(logger.WithContext(c.UserContext(), log))

		err := c.Next()
		if err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		log.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("latency", time.Since(began)).
			Msg("request")
		return nil
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
}
