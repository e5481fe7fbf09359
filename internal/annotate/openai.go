package annotate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"code-review-orchestrator/internal/config"
	"code-review-orchestrator/internal/domain"
)

// openaiAnnotator calls an OpenAI-compatible endpoint directly.
// The client is safe for concurrent use once constructed.
type openaiAnnotator struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

func newOpenAIAnnotator(cfg config.AnnotatorConfig) *openaiAnnotator {
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.Endpoint),
	)
	return &openaiAnnotator{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

func (a *openaiAnnotator) Suggest(ctx context.Context, artifact *domain.Artifact, issue domain.Issue) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(suggestSystemPrompt),
			openai.UserMessage(suggestPrompt(artifact, issue)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no openai response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
