package controller

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"kisaanbot-be/internal/dto"
	"kisaanbot-be/internal/pkg/logger"
	"kisaanbot-be/internal/pkg/serverutils"
	"kisaanbot-be/internal/service"
)

type IWebhookController interface {
	RegisterRoutes(r fiber.Router, signature fiber.Handler)
	Verify(ctx *fiber.Ctx) error
	Receive(ctx *fiber.Ctx) error
}

type webhookController struct {
	conversation service.IConversationService
	verifyToken  string
	log          logger.ILogger
}

func NewWebhookController(conversation service.IConversationService, verifyToken string, log logger.ILogger) IWebhookController {
	return &webhookController{
		conversation: conversation,
		verifyToken:  verifyToken,
		log:          log,
	}
}

func (c *webhookController) RegisterRoutes(r fiber.Router, signature fiber.Handler) {
	r.Get("/webhook", c.Verify)
	r.Post("/webhook", signature, c.Receive)
}

// Verify answers the Graph API subscription handshake.
func (c *webhookController) Verify(ctx *fiber.Ctx) error {
	mode := ctx.Query("hub.mode")
	token := ctx.Query("hub.verify_token")
	challenge := ctx.Query("hub.challenge")

	if mode == "subscribe" && token == c.verifyToken {
		return ctx.SendString(challenge)
	}
	return ctx.SendStatus(fiber.StatusForbidden)
}

// Receive acks immediately and processes the payload in the background so
// the Graph API never retries on slow model calls.
func (c *webhookController) Receive(ctx *fiber.Ctx) error {
	var payload dto.WebhookPayload
	if err := ctx.BodyParser(&payload); err != nil {
		c.log.Warn("webhook_controller", "unparseable webhook payload", map[string]interface{}{
			"error": err.Error(),
		})
		return ctx.SendStatus(fiber.StatusOK)
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			phoneNumberID := change.Value.Metadata.PhoneNumberID

			msgs := make([]dto.InboundMessage, 0, len(change.Value.Messages))
			for _, msg := range change.Value.Messages {
				if err := serverutils.ValidateRequest(&msg); err != nil {
					c.log.Warn("webhook_controller", "dropping invalid inbound message", map[string]interface{}{
						"error": err.Error(),
					})
					continue
				}
				msgs = append(msgs, msg)
			}
			// One goroutine per change keeps a user's photo burst and its
			// caption in arrival order.
			if len(msgs) > 0 {
				go func(phoneNumberID string, msgs []dto.InboundMessage) {
					for _, msg := range msgs {
						c.conversation.HandleMessage(context.Background(), phoneNumberID, msg)
					}
				}(phoneNumberID, msgs)
			}
			for _, status := range change.Value.Statuses {
				c.conversation.HandleStatus(phoneNumberID, status)
			}
		}
	}

	return ctx.SendStatus(fiber.StatusOK)
}
