package openai

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/omnisearch/internal/domain"
)

const suggestPrompt = "You complete search queries for a content platform with users, files, streams and posts. " +
	"Reply with up to %d alternative or refined search queries for the user's query, one per line, " +
	"without numbering or commentary."

var listMarker = regexp.MustCompile(`^(\d+[.)]|[-*•])\s*`)

// Suggester produces query suggestions through a chat completion model.
type Suggester struct {
	client     *openai.Client
	configured bool
	model      string
	user       string
	logger     *zap.Logger
}

// NewSuggester creates a chat-completion suggestion provider. It is unavailable without
// an API key or chat model.
func NewSuggester(cfg *Config) *Suggester {
	return &Suggester{
		client:     newClient(cfg),
		configured: cfg.APIKey != "" && cfg.ChatModel != "",
		model:      cfg.ChatModel,
		user:       cfg.User,
		logger:     cfg.logger(),
	}
}

// Available reports whether the provider is configured.
func (s *Suggester) Available() bool { return s.configured }

// Suggest returns at most limit suggestions for query.
func (s *Suggester) Suggest(ctx context.Context, query string, limit int) ([]string, error) {
	if !s.configured {
		return nil, domain.ErrProviderUnavailable
	}
	if limit <= 0 {
		return nil, nil
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(suggestPrompt, limit)},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		Temperature: 0.2,
		MaxTokens:   200,
		User:        s.user,
	})
	if err != nil {
		s.logger.Warn("Suggestion request failed", zap.String("model", s.model), zap.Error(err))
		return nil, parseAPIError("suggestion", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty suggestion response: %w", domain.ErrEmbeddingProviderError)
	}

	return parseSuggestions(resp.Choices[0].Message.Content, query, limit), nil
}

// parseSuggestions splits the completion into distinct lines, strips list markers
// and drops echoes of the query itself.
func parseSuggestions(content, query string, limit int) []string {
	seen := map[string]struct{}{strings.ToLower(strings.TrimSpace(query)): {}}
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = listMarker.ReplaceAllString(strings.TrimSpace(line), "")
		line = strings.TrimSpace(strings.Trim(line, "\"'"))
		if line == "" {
			continue
		}
		key := strings.ToLower(line)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, line)
		if len(out) == limit {
			break
		}
	}
	return out
}
