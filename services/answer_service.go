package services

import (
	"context"
	"fmt"
	"strings"

	"docchat/models"
)

// Fixed sampling parameters for answer generation.
const (
	answerMaxTokens   = 800
	answerTemperature = 0.7
	answerTopP        = 0.95
)

// NoExcerptsMarker is the context handed to the model when retrieval produced
// nothing. The generator is always invoked with an explicit marker, never an
// empty context block.
const NoExcerptsMarker = "No relevant excerpts were found in the indexed documents."

// AnswerGenerator produces the final answer from an assembled prompt by
// calling a remote chat-completion model.
type AnswerGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

// BuildPrompt assembles the single user prompt: the retrieved excerpts with
// their provenance, the literal question, and the fixed instruction
// directives.
func BuildPrompt(question string, excerpts []models.QueryResult, language string) string {
	var contextBlock strings.Builder
	if len(excerpts) == 0 {
		contextBlock.WriteString(NoExcerptsMarker)
	} else {
		for _, e := range excerpts {
			fmt.Fprintf(&contextBlock, "- [source: %s, segment %d]\n%s\n", e.Filename, e.ChunkNumber, e.Content)
		}
	}

	return fmt.Sprintf(`DOCUMENT CONTEXT:
%s

USER QUESTION:
%s

INSTRUCTIONS:
- Respond in %s
- Cite the documentary sources used
- Mention the names of the referenced documents
- Professional and accessible tone`, contextBlock.String(), question, language)
}
