package whatif

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used for planning and projections.
const DefaultModel = "gemini-2.5-pro"

// TextModel asks a language model a single prompt and returns its raw text.
// The engine treats the response as untrusted: arbitrary prose is tolerated
// and structure is extracted defensively.
type TextModel interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// Gemini is the google genai backed TextModel.
type Gemini struct {
	ModelName string
	client    *genai.Client
}

// NewGemini creates a Gemini client. The API key is taken from the
// environment (GEMINI_API_KEY), as the genai client does by default.
func NewGemini(ctx context.Context) (*Gemini, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot create genai client: %w", err)
	}
	return &Gemini{ModelName: modelName(), client: client}, nil
}

// modelName returns the model from WHATIF_MODEL, or DefaultModel.
func modelName() string {
	if m := os.Getenv("WHATIF_MODEL"); m != "" {
		return m
	}
	return DefaultModel
}

// Ask implements TextModel with a one-shot chat.
func (g *Gemini) Ask(ctx context.Context, prompt string) (string, error) {
	chat, err := g.client.Chats.Create(ctx, g.ModelName, nil, nil)
	if err != nil {
		return "", err
	}
	resp, err := chat.Send(ctx, &genai.Part{Text: prompt})
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from %s", g.ModelName)
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// extractTagged returns the content of the first <tag>...</tag> block in raw,
// stripping surrounding prose and markdown code fences. It returns false when
// the block is absent: callers fail closed rather than guess.
func extractTagged(raw, tag string) (string, bool) {
	open, close := "<"+tag+">", "</"+tag+">"
	i := strings.Index(raw, open)
	if i < 0 {
		return "", false
	}
	rest := raw[i+len(open):]
	j := strings.Index(rest, close)
	if j < 0 {
		return "", false
	}
	content := strings.TrimSpace(rest[:j])
	// models love wrapping JSON in fences even inside tags
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if k := strings.LastIndex(content, "```"); k >= 0 {
			content = content[:k]
		}
		content = strings.TrimSpace(content)
	}
	return content, true
}
