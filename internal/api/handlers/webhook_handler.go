package handlers

import (
	"tasfiat-brain/internal/dto"
	"tasfiat-brain/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type WebhookHandler struct {
	chatwoot *service.ChatwootService
	logger   *zap.Logger
}

func NewWebhookHandler(chatwoot *service.ChatwootService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		chatwoot: chatwoot,
		logger:   logger,
	}
}

// Chatwoot godoc
// @Summary Chatwoot webhook
// @Description Answers incoming customer messages. Always responds 200 so Chatwoot does not retry.
// @Tags webhook
// @Accept json
// @Produce json
// @Param token query string false "Shared webhook token"
// @Success 200 {object} dto.WebhookResponse
// @Failure 401 {object} map[string]string
// @Router /chatwoot/webhook [post]
func (h *WebhookHandler) Chatwoot(c *fiber.Ctx) error {
	var ev dto.ChatwootWebhook
	if err := c.BodyParser(&ev); err != nil {
		h.logger.Warn("Invalid webhook payload", zap.Error(err))
		return c.JSON(dto.WebhookResponse{OK: false, Error: "invalid_payload"})
	}

	resp, err := h.chatwoot.HandleWebhook(c.UserContext(), ev)
	if err != nil {
		h.logger.Error("Webhook handling failed",
			zap.Int64("conversation_id", ev.Conversation.ID),
			zap.Int64("message_id", ev.ID),
			zap.Error(err),
		)
	}
	return c.JSON(resp)
}
