package handlers

import (
	"errors"
	"strings"

	"tasfiat-brain/internal/dto"
	"tasfiat-brain/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type SearchHandler struct {
	queries *service.QueryService
	logger  *zap.Logger
}

func NewSearchHandler(queries *service.QueryService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		queries: queries,
		logger:  logger,
	}
}

// Search godoc
// @Summary Answer a customer message
// @Description Runs the message through the intent rules and knowledge search
// @Tags search
// @Accept json
// @Produce json
// @Param request body dto.SearchRequest true "Message text in q or query"
// @Success 200 {object} reply.Result
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]interface{}
// @Router /search [post]
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	var req dto.SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	convID := strings.TrimSpace(req.ConversationID)
	if convID == "" {
		convID = service.DefaultConversationID
	}

	result, err := h.queries.Answer(c.UserContext(), req.Text(), convID)
	if errors.Is(err, service.ErrKnowledgeNotConfigured) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"ok":    false,
			"error": "knowledge_not_configured",
		})
	}
	if err != nil {
		h.logger.Error("Failed to answer query", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"ok":    false,
			"error": "search_failed",
		})
	}

	return c.JSON(result)
}
