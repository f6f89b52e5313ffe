package api

import (
	"github.com/gofiber/fiber/v2"

	"pulse/store"
	"pulse/types"
)

type FeedbackHandler struct {
	feedbackStore store.FeedbackStorer
}

func NewFeedbackHandler(fs store.FeedbackStorer) *FeedbackHandler {
	return &FeedbackHandler{feedbackStore: fs}
}

func (h *FeedbackHandler) HandleFeedback(c *fiber.Ctx) error {
	if h.feedbackStore == nil {
		return ErrServiceUnavailable()
	}

	var params types.FeedbackRequest
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	fb := types.Feedback{
		Question: params.Question,
		Answer:   params.Answer,
		Sources:  params.Sources,
		Label:    params.Feedback,
		Value:    *params.Value,
		Comment:  params.Comment,
	}
	if err := h.feedbackStore.SaveFeedback(c.Context(), fb); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"result": "ok"})
}
