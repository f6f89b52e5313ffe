package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

// QueryRequest is the body of a chat request.
type QueryRequest struct {
	Question  string `json:"question" validate:"required,max=500"`
	ModelSize string `json:"model_size" validate:"required,oneof=small large"`
}

// ChatResponse is the answer returned to the caller. Sources is a
// human-readable line-per-chunk listing of title, city and end date.
type ChatResponse struct {
	Answer  string `json:"answer"`
	Sources string `json:"sources"`
}

// FeedbackRequest is the body of a feedback submission.
type FeedbackRequest struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer"`
	Sources  string `json:"sources"`
	Feedback string `json:"feedback" validate:"required,oneof=positive negative"`
	Value    *int   `json:"value" validate:"required,min=0,max=1"`
	Comment  string `json:"comment"`
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func (params *QueryRequest) Validate() map[string]string {
	return validateStruct(params)
}

func (params *FeedbackRequest) Validate() map[string]string {
	return validateStruct(params)
}

func validateStruct(v any) map[string]string {
	validate := validator.New()
	if err := validate.Struct(v); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}
