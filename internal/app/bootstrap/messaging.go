package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/wolfman30/studyvisa-ai-platform/internal/channels"
	"github.com/wolfman30/studyvisa-ai-platform/internal/channels/telegram"
	"github.com/wolfman30/studyvisa-ai-platform/internal/channels/whatsapp"
	appconfig "github.com/wolfman30/studyvisa-ai-platform/internal/config"
	"github.com/wolfman30/studyvisa-ai-platform/internal/notify"
	"github.com/wolfman30/studyvisa-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

// Channels holds both provider adapters and the registry that routes replies.
type Channels struct {
	WhatsApp *whatsapp.Adapter
	Telegram *telegram.Adapter
	Registry *channels.Registry
}

// BuildChannels registers both adapters. Unconfigured adapters still accept
// webhooks and log outbound sends instead of delivering them.
func BuildChannels(cfg *appconfig.Config, m *metrics.DialogueMetrics, logger *logging.Logger) *Channels {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		cfg = &appconfig.Config{}
	}
	wa := whatsapp.NewAdapter(whatsapp.Config{
		AccessToken:   cfg.WhatsAppToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		AppSecret:     cfg.WhatsAppAppSecret,
		VerifyToken:   cfg.WhatsAppVerifyToken,
	}, m, logger)
	tg := telegram.NewAdapter(cfg.TelegramBotToken, cfg.TelegramWebhookSecret, m, logger)

	if !cfg.WhatsAppConfigured() {
		logger.Warn("whatsapp credentials missing; replies will be logged only")
	}
	if strings.TrimSpace(cfg.TelegramBotToken) == "" {
		logger.Warn("telegram bot token missing; replies will be logged only")
	}
	return &Channels{
		WhatsApp: wa,
		Telegram: tg,
		Registry: channels.NewRegistry(logger, wa, tg),
	}
}

// BuildEmailSender prefers SendGrid, then SES. A nil result selects the
// logging stub inside the notifier.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if cfg == nil {
		return nil
	}
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		return sg
	}
	if awsCfg != nil && strings.TrimSpace(cfg.SESFromEmail) != "" {
		if ses := notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); ses != nil {
			return ses
		}
	}
	return nil
}

// BuildLeadNotifier wires the new-lead staff alert.
func BuildLeadNotifier(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *notify.LeadNotifier {
	if cfg == nil {
		return notify.NewLeadNotifier(nil, "", logger)
	}
	return notify.NewLeadNotifier(BuildEmailSender(cfg, awsCfg, logger), cfg.NotifyEmailTo, logger)
}
