package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// Rebuilder is implemented by the rebuild coordinator.
type Rebuilder interface {
	Run(ctx context.Context) error
}

type RebuildHandler struct {
	coordinator Rebuilder
}

func NewRebuildHandler(coordinator Rebuilder) *RebuildHandler {
	return &RebuildHandler{coordinator: coordinator}
}

// HandleRebuild runs a full refresh synchronously. A rebuild already in
// progress answers 409; a failed rebuild answers 500 with the failing
// stage, and the previously published index keeps serving.
func (h *RebuildHandler) HandleRebuild(c *fiber.Ctx) error {
	if err := h.coordinator.Run(c.Context()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"info": "RAG system rebuilt successfully"})
}
