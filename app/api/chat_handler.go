package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"pulse/types"
)

// Responder is implemented by the generation orchestrator.
type Responder interface {
	Respond(ctx context.Context, question string, tier string) (string, []types.Chunk, error)
}

type ChatHandler struct {
	responder Responder
}

func NewChatHandler(r Responder) *ChatHandler {
	return &ChatHandler{responder: r}
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var params types.QueryRequest
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	answer, chunks, err := h.responder.Respond(c.Context(), params.Question, params.ModelSize)
	if err != nil {
		return err
	}

	return c.JSON(types.ChatResponse{
		Answer:  answer,
		Sources: formatSources(chunks),
	})
}

// formatSources renders one attribution line per chunk used in the answer.
func formatSources(chunks []types.Chunk) string {
	var sb strings.Builder
	sb.WriteString("\n--- Sources ---\n")
	for _, chunk := range chunks {
		dateEnd := "unknown"
		if chunk.DateEnd != nil {
			dateEnd = chunk.DateEnd.Format(time.RFC3339)
		}
		sb.WriteString(fmt.Sprintf("- %s (%s, ends: %s)\n", chunk.Title, chunk.City, dateEnd))
	}
	return sb.String()
}
