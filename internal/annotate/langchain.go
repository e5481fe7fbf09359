package annotate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"code-review-orchestrator/internal/config"
	"code-review-orchestrator/internal/domain"
)

// langchainAnnotator drives the model through langchaingo, for
// deployments standardized on its provider abstraction.
type langchainAnnotator struct {
	llm     llms.Model
	timeout time.Duration
}

func newLangChainAnnotator(cfg config.AnnotatorConfig) (*langchainAnnotator, error) {
	llm, err := openai.New(
		openai.WithModel(cfg.Model),
		openai.WithBaseURL(cfg.Endpoint),
		openai.WithToken(cfg.APIKey),
	)
	if err != nil {
		return nil, fmt.Errorf("init langchain llm: %w", err)
	}
	return &langchainAnnotator{llm: llm, timeout: cfg.Timeout}, nil
}

func (a *langchainAnnotator) Suggest(ctx context.Context, artifact *domain.Artifact, issue domain.Issue) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	resp, err := llms.GenerateFromSinglePrompt(ctx, a.llm,
		suggestSystemPrompt+"\n\n"+suggestPrompt(artifact, issue))
	if err != nil {
		return "", fmt.Errorf("langchain request: %w", err)
	}
	return strings.TrimSpace(resp), nil
}
