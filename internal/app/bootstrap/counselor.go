package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/studyvisa-ai-platform/internal/config"
	"github.com/wolfman30/studyvisa-ai-platform/internal/counselor"
	"github.com/wolfman30/studyvisa-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

// BuildLLMClient picks the model backends from config: Gemini when an API key
// is set, Bedrock when a model id and AWS config are present, and a fallback
// chain when both are. A nil client means the AI fallback is unavailable.
// The returned close func is never nil.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (counselor.LLMClient, func(), error) {
	noop := func() {}
	if cfg == nil {
		return nil, noop, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var primary, secondary counselor.LLMClient
	closeFn := noop

	if key := strings.TrimSpace(cfg.GoogleAPIKey); key != "" {
		gemini, err := counselor.NewGeminiLLMClient(ctx, key, cfg.GeminiModelID)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		primary = gemini
		closeFn = func() { _ = gemini.Close() }
	}

	if model := strings.TrimSpace(cfg.BedrockModelID); model != "" {
		if awsCfg == nil {
			logger.Warn("bedrock model configured without AWS config; skipping", "model", model)
		} else {
			secondary = counselor.NewBedrockLLMClient(bedrockruntime.NewFromConfig(*awsCfg), model)
		}
	}

	switch {
	case primary != nil && secondary != nil:
		logger.Info("AI fallback enabled", "primary", "gemini", "secondary", "bedrock")
		return counselor.NewFallbackLLMClient(primary, secondary, logger), closeFn, nil
	case primary != nil:
		logger.Info("AI fallback enabled", "primary", "gemini")
		return primary, closeFn, nil
	case secondary != nil:
		logger.Info("AI fallback enabled", "primary", "bedrock")
		return secondary, closeFn, nil
	default:
		logger.Warn("no AI provider configured; free-text questions get the unavailable reply")
		return nil, closeFn, nil
	}
}

// CounselorOptions maps config onto the model call options.
func CounselorOptions(cfg *appconfig.Config) counselor.Options {
	if cfg == nil {
		return counselor.Options{}
	}
	return counselor.Options{
		Timeout:       cfg.AITimeout,
		HistoryWindow: cfg.AIHistoryWindow,
	}
}

// BuildCounselor wraps the configured LLM client with the counselor persona.
func BuildCounselor(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, m *metrics.DialogueMetrics, logger *logging.Logger) (*counselor.Counselor, func(), error) {
	client, closeFn, err := BuildLLMClient(ctx, cfg, awsCfg, logger)
	if err != nil {
		return nil, closeFn, err
	}
	return counselor.New(client, CounselorOptions(cfg), m, logger), closeFn, nil
}
