// Package suggest proposes link URLs for a topic using an LLM provider.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/kaptinlin/jsonschema"

	"clickloop/internal/domain"
)

// outputSchema accepts either a bare array of strings or {"suggestedUrls": [...]}.
const outputSchema = `{
  "oneOf": [
    {"type": "array", "items": {"type": "string"}},
    {
      "type": "object",
      "properties": {"suggestedUrls": {"type": "array", "items": {"type": "string"}}},
      "required": ["suggestedUrls"]
    }
  ]
}`

const systemPrompt = "You are an expert content curator for click loops. " +
	"You suggest relevant, engaging, publicly reachable web pages for a topic."

// Config tunes the suggester.
type Config struct {
	MaxSuggestions int
	Timeout        time.Duration
	Model          string // empty uses the provider default
}

// Suggester implements domain.ContentSuggester on top of an LLMProvider.
type Suggester struct {
	provider domain.LLMProvider
	schema   *jsonschema.Schema
	cfg      Config
	logger   *slog.Logger
}

// New creates a suggester. It fails only if the embedded output schema does not compile.
func New(provider domain.LLMProvider, cfg Config, logger *slog.Logger) (*Suggester, error) {
	schema, err := jsonschema.NewCompiler().Compile([]byte(outputSchema))
	if err != nil {
		return nil, fmt.Errorf("compile suggestion schema: %w", err)
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &Suggester{provider: provider, schema: schema, cfg: cfg, logger: logger}, nil
}

// Suggest asks the provider for URLs about topic. An empty result is not an error.
func (s *Suggester) Suggest(ctx context.Context, topic string, exampleURLs []string) ([]string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, domain.NewSubSystemError("suggest", "Suggester.Suggest", domain.ErrInvalidInput, "topic is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	resp, err := s.provider.Chat(ctx, domain.ChatRequest{
		Model: s.cfg.Model,
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: systemPrompt},
			{Role: domain.RoleUser, Content: buildPrompt(topic, exampleURLs)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, domain.NewSubSystemError("suggest", "Suggester.Suggest", domain.ErrTimeout, err.Error())
		}
		return nil, domain.WrapOp("Suggester.Suggest", err)
	}

	urls, err := s.parse(resp.Message.Content)
	if err != nil {
		s.logger.Warn("suggestion output rejected", "provider", s.provider.Name(), "error", err)
		return nil, domain.NewSubSystemError("suggest", "Suggester.Suggest", domain.ErrProviderError, err.Error())
	}

	s.logger.Debug("suggestions received", "topic", topic, "count", len(urls))
	return urls, nil
}

func buildPrompt(topic string, examples []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\n", topic)
	if len(examples) > 0 {
		b.WriteString("Here are some example URLs to guide your suggestions:\n")
		for _, u := range examples {
			if u = strings.TrimSpace(u); u != "" {
				fmt.Fprintf(&b, "- %s\n", u)
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("Please suggest a list of URLs that would be suitable for a click loop on this topic. ")
	b.WriteString("Return ONLY a JSON array of strings.")
	return b.String()
}

// parse validates raw model output and returns clean, unique http(s) URLs.
func (s *Suggester) parse(raw string) ([]string, error) {
	raw = stripCodeFences(raw)
	if raw == "" {
		return nil, nil
	}

	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if result := s.schema.Validate(parsed); !result.IsValid() {
		return nil, fmt.Errorf("output does not match schema: %s", result.Error())
	}

	var items []any
	switch v := parsed.(type) {
	case []any:
		items = v
	case map[string]any:
		items, _ = v["suggestedUrls"].([]any)
	}

	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		str, _ := it.(string)
		str = strings.TrimSpace(str)
		if !isWebURL(str) || seen[str] {
			continue
		}
		seen[str] = true
		out = append(out, str)
		if len(out) == s.cfg.MaxSuggestions {
			break
		}
	}
	return out, nil
}

func isWebURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

var codeFenceRe = regexp.MustCompile(`(?si)^` + "```" + `(?:json)?\s*(.*?)\s*` + "```" + `$`)

// stripCodeFences removes markdown code fences if the model wrapped its output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRe.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return s
}
