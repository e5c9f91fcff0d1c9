package handlers

import (
	"time"

	"tasfiat-brain/internal/dto"
	"tasfiat-brain/internal/geo"
	"tasfiat-brain/internal/memory"
	"tasfiat-brain/internal/service"

	"github.com/gofiber/fiber/v2"
)

const ServiceName = "tasfiat-brain"

type HealthHandler struct {
	knowledge *service.KnowledgeService
	places    *geo.PlaceIndex
	memory    *memory.Memory
}

func NewHealthHandler(knowledge *service.KnowledgeService, places *geo.PlaceIndex, mem *memory.Memory) *HealthHandler {
	return &HealthHandler{
		knowledge: knowledge,
		places:    places,
		memory:    mem,
	}
}

// Health godoc
// @Summary Service health
// @Description Knowledge source state, place index size and choice memory usage
// @Tags health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	st := h.knowledge.Status()
	resp := dto.HealthResponse{
		OK:      true,
		Service: ServiceName,
		Knowledge: dto.KnowledgeHealth{
			Configured:  st.Configured,
			Source:      st.Source,
			Count:       st.Count,
			Duplicates:  st.Duplicates,
			LoadedAt:    formatTime(st.LoadedAt),
			LastAttempt: formatTime(st.LastAttempt),
			LastError:   st.LastError,
		},
	}
	if h.places != nil {
		resp.PlacesKeys = h.places.Len()
		resp.PlacesVer = h.places.Meta().Version
	}
	if h.memory != nil {
		resp.Memory = h.memory.Len()
	}
	return c.JSON(resp)
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
