// Package server exposes the HTTP surface of the agent: the inbound
// webhook called by the WhatsApp bridge, a direct send endpoint, and a
// health check.
package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	orchestratorx "github.com/demostore/cod-agent/agent/agents/orchestrator"
	contractx "github.com/demostore/cod-agent/agent/contract"
)

const fallbackReply = "Sorry, something went wrong on our side. Please try again in a moment!"

type Config struct {
	Port         string        `split_words:"true" default:"5000"`
	ReadTimeout  time.Duration `split_words:"true" default:"30s"`
	WriteTimeout time.Duration `split_words:"true" default:"90s"`
	StoreName    string        `split_words:"true" default:"Demo Store"`
}

// MessageHandler processes one inbound message and returns the reply
// text.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg contractx.InboundMessage) (string, error)
}

type Server struct {
	app     *fiber.App
	handler MessageHandler
	sender  contractx.Sender
	cfg     Config
}

func New(handler MessageHandler, sender contractx.Sender, cfg Config) (*Server, error) {
	if handler == nil {
		return nil, errors.New("message handler is required")
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	s := &Server{
		app:     app,
		handler: handler,
		sender:  sender,
		cfg:     cfg,
	}

	app.Post("/webhook", s.handleWebhook)
	app.Post("/send", s.handleSend)
	app.Get("/health", s.handleHealth)

	return s, nil
}

// App returns the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen() error {
	return s.app.Listen(":" + s.cfg.Port)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

type webhookRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
	Name    string `json:"name"`
}

func (s *Server) handleWebhook(c *fiber.Ctx) error {
	var req webhookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid webhook payload",
		})
	}

	msg := contractx.InboundMessage{
		Address:     strings.TrimSpace(req.Phone),
		Text:        req.Message,
		ProfileName: strings.TrimSpace(req.Name),
	}

	reply, err := s.handler.HandleMessage(c.Context(), msg)
	if err != nil {
		if errors.Is(err, orchestratorx.ErrInvalidAddress) || errors.Is(err, orchestratorx.ErrInvalidMessage) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		log.Error().Err(err).Str("phone", msg.Address).Msg("webhook handling failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"reply": fallbackReply,
		})
	}

	return c.JSON(fiber.Map{"reply": reply})
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (s *Server) handleSend(c *fiber.Ctx) error {
	if s.sender == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "outbound sending is not configured",
		})
	}

	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid send payload",
		})
	}
	if strings.TrimSpace(req.Phone) == "" || strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "phone and message are required",
		})
	}

	if err := s.sender.SendText(c.Context(), req.Phone, req.Message); err != nil {
		log.Error().Err(err).Str("phone", req.Phone).Msg("outbound send failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "failed to deliver message",
		})
	}

	return c.JSON(fiber.Map{"status": "sent"})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"store":     s.cfg.StoreName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
