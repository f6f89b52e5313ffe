package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"pulse/model"
	"pulse/search"
	"pulse/types"
)

const promptTemplate = `You are the virtual assistant of "Pulse Events". Your mission is to recommend cultural events.

Here is the information about available events (context):
---------------------
%s
---------------------

User question:
%s

ANSWER RULES (MANDATORY):
1. If nothing in the context answers the question, simply say you don't know.
2. Keep the tone warm, engaging and dynamic.
3. FORMATTING:
   - No large compact paragraphs.
   - Use a bulleted list, one item per event.
   - Put the event title in bold.
   - Mention date, place and details on their own lines.
   - Finish with a short inviting sentence.

Structured answer:
`

// maxPromptTokens bounds the assembled prompt; trailing chunks are
// dropped until the prompt fits.
const maxPromptTokens = 6000

// Retriever supplies the context chunks for a question.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]types.Chunk, error)
}

// Responder assembles a grounded prompt from retrieved chunks, calls
// the generation backend and returns the answer together with the
// chunks that actually made it into the prompt.
type Responder struct {
	retriever Retriever
	generator model.Generator
	logger    *slog.Logger
	topK      int
}

func NewResponder(retriever Retriever, generator model.Generator) *Responder {
	return &Responder{
		retriever: retriever,
		generator: generator,
		logger:    slog.Default(),
		topK:      search.DefaultTopK,
	}
}

// Respond answers the question using the published index and the given
// model tier. Zero retrieved chunks is not an error: the model is asked
// anyway and expected to say it has no matching information.
func (r *Responder) Respond(ctx context.Context, question string, tier string) (string, []types.Chunk, error) {
	chunks, err := r.retriever.Search(ctx, question, r.topK)
	if err != nil {
		return "", nil, err
	}
	r.logger.Info("chunks retrieved for question", "count", len(chunks), "model", tier)

	prompt, used := r.buildPrompt(question, chunks)

	answer, err := r.generator.Generate(ctx, prompt, tier)
	if err != nil {
		return "", nil, err
	}
	return answer, used, nil
}

// buildPrompt joins chunk texts with blank lines and fills the
// template, trimming trailing chunks while the prompt exceeds the token
// budget.
func (r *Responder) buildPrompt(question string, chunks []types.Chunk) (string, []types.Chunk) {
	for len(chunks) > 0 {
		prompt := fillTemplate(question, chunks)
		count := countTokens(prompt)
		if count <= maxPromptTokens {
			return prompt, chunks
		}
		r.logger.Info("prompt over token budget, dropping last chunk", "tokens", count)
		chunks = chunks[:len(chunks)-1]
	}
	return fillTemplate(question, nil), nil
}

func fillTemplate(question string, chunks []types.Chunk) string {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	return fmt.Sprintf(promptTemplate, strings.Join(texts, "\n\n"), question)
}

// countTokens falls back to a chars/4 estimate when the encoding files
// are unavailable.
func countTokens(text string) int {
	enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
	if err != nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
