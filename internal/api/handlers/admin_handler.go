package handlers

import (
	"errors"

	"tasfiat-brain/internal/dto"
	"tasfiat-brain/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AdminHandler struct {
	knowledge *service.KnowledgeService
	logger    *zap.Logger
}

func NewAdminHandler(knowledge *service.KnowledgeService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		knowledge: knowledge,
		logger:    logger,
	}
}

// RefreshKnowledge godoc
// @Summary Reload the knowledge snapshot
// @Description Fetches the knowledge source now. On failure the previous snapshot stays active.
// @Tags admin
// @Produce json
// @Param token query string false "Shared webhook token"
// @Success 200 {object} dto.RefreshResponse
// @Failure 401 {object} map[string]string
// @Failure 502 {object} dto.RefreshResponse
// @Failure 503 {object} dto.RefreshResponse
// @Router /admin/knowledge/refresh [post]
func (h *AdminHandler) RefreshKnowledge(c *fiber.Ctx) error {
	snap, err := h.knowledge.Refresh(c.UserContext())
	if errors.Is(err, service.ErrKnowledgeNotConfigured) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.RefreshResponse{
			Error: "knowledge_not_configured",
		})
	}
	if err != nil {
		h.logger.Warn("Manual knowledge refresh failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(dto.RefreshResponse{
			Error: err.Error(),
		})
	}

	return c.JSON(dto.RefreshResponse{OK: true, Count: snap.Len()})
}
