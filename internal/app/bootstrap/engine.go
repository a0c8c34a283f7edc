package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/studyvisa-ai-platform/internal/config"
	"github.com/wolfman30/studyvisa-ai-platform/internal/conversation"
	"github.com/wolfman30/studyvisa-ai-platform/internal/counselor"
	"github.com/wolfman30/studyvisa-ai-platform/internal/dialogue"
	"github.com/wolfman30/studyvisa-ai-platform/internal/inbound"
	"github.com/wolfman30/studyvisa-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

const memoryQueueBuffer = 256

// EngineInput collects what the dialogue engine needs beyond config.
type EngineInput struct {
	Stores   *Stores
	Channels *Channels
	AWS      *aws.Config
	Redis    *redis.Client
	Metrics  *metrics.DialogueMetrics
	Logger   *logging.Logger
}

// BuildEngine wires the dialogue engine with its AI fallback, history source
// and lead notifier. The returned close func releases the model client.
func BuildEngine(ctx context.Context, cfg *appconfig.Config, in EngineInput) (*dialogue.Engine, func(), error) {
	noop := func() {}
	if cfg == nil {
		return nil, noop, fmt.Errorf("bootstrap: config is required")
	}
	if in.Stores == nil || in.Channels == nil {
		return nil, noop, fmt.Errorf("bootstrap: stores and channels are required")
	}
	logger := in.Logger
	if logger == nil {
		logger = logging.Default()
	}

	ai, closeFn, err := BuildCounselor(ctx, cfg, in.AWS, in.Metrics, logger)
	if err != nil {
		return nil, noop, err
	}

	deps := dialogue.Deps{
		Profiles:     in.Stores.Students,
		Leads:        in.Stores.Leads,
		Log:          in.Stores.ChatLog,
		Sender:       in.Channels.Registry,
		Appointments: in.Stores.Appointments,
		AI:           ai,
		Notifier:     BuildLeadNotifier(cfg, in.AWS, logger),
		Metrics:      in.Metrics,
		Logger:       logger,
		VoiceDelay:   cfg.VoiceAckDelay,
	}
	if cache := counselor.NewRedisHistoryCache(in.Redis, in.Stores.ChatLog); cache != nil {
		deps.History = cache
		deps.Recorder = cache
		logger.Info("AI history cache enabled")
	} else {
		deps.History = counselor.NewLogHistory(in.Stores.ChatLog)
	}

	return dialogue.NewEngine(deps), closeFn, nil
}

// BuildSQSQueue returns the SQS turn queue named by TURN_QUEUE_URL.
func BuildSQSQueue(cfg *appconfig.Config, awsCfg *aws.Config) (*conversation.SQSQueue, error) {
	if cfg == nil || strings.TrimSpace(cfg.TurnQueueURL) == "" {
		return nil, fmt.Errorf("bootstrap: TURN_QUEUE_URL is required for sqs dispatch")
	}
	if awsCfg == nil {
		return nil, fmt.Errorf("bootstrap: AWS config is required for sqs dispatch")
	}
	return conversation.NewSQSQueue(sqs.NewFromConfig(*awsCfg), cfg.TurnQueueURL), nil
}

// BuildDispatcher selects how webhook turns reach the engine. For memory
// dispatch the returned queue must be drained by an in-process worker.
func BuildDispatcher(cfg *appconfig.Config, engine *dialogue.Engine, awsCfg *aws.Config, logger *logging.Logger) (inbound.Dispatcher, *conversation.MemoryQueue, error) {
	if cfg == nil || engine == nil {
		return nil, nil, fmt.Errorf("bootstrap: config and engine are required")
	}
	switch cfg.TurnDispatch {
	case appconfig.DispatchInline:
		return inbound.NewInlineDispatcher(engine, 0), nil, nil
	case appconfig.DispatchMemory, "":
		queue := conversation.NewMemoryQueue(memoryQueueBuffer)
		return inbound.NewQueueDispatcher(conversation.NewPublisher(queue, logger)), queue, nil
	case appconfig.DispatchSQS:
		queue, err := BuildSQSQueue(cfg, awsCfg)
		if err != nil {
			return nil, nil, err
		}
		return inbound.NewQueueDispatcher(conversation.NewPublisher(queue, logger)), nil, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown TURN_DISPATCH %q", cfg.TurnDispatch)
	}
}
