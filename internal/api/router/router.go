package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/studyvisa-ai-platform/internal/analytics"
	"github.com/wolfman30/studyvisa-ai-platform/internal/appointments"
	"github.com/wolfman30/studyvisa-ai-platform/internal/database"
	"github.com/wolfman30/studyvisa-ai-platform/internal/documents"
	httpmiddleware "github.com/wolfman30/studyvisa-ai-platform/internal/http/middleware"
	"github.com/wolfman30/studyvisa-ai-platform/internal/http/respond"
	"github.com/wolfman30/studyvisa-ai-platform/internal/inbound"
	"github.com/wolfman30/studyvisa-ai-platform/internal/leads"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

const homeMessage = "Study Visa Genie API is Live"

// Config holds router configuration. Nil handlers leave their routes unmounted.
type Config struct {
	Logger *logging.Logger

	WhatsAppWebhook *inbound.WebhookHandler
	TelegramWebhook *inbound.WebhookHandler

	LeadsHandler        *leads.Handler
	AnalyticsHandler    *analytics.Handler
	DocumentsHandler    *documents.Handler
	AppointmentsHandler *appointments.Handler
	HealthHandler       *database.HealthHandler

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(httpmiddleware.ErrorRecovery(cfg.Logger))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"message": homeMessage})
	})
	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.Live)
		r.Get("/ready", cfg.HealthHandler.Ready)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Provider webhooks
	if cfg.WhatsAppWebhook != nil {
		r.Route("/api/whatsapp/webhook", func(r chi.Router) {
			r.Get("/", cfg.WhatsAppWebhook.Verify)
			r.Post("/", cfg.WhatsAppWebhook.Receive)
		})
	}
	if cfg.TelegramWebhook != nil {
		r.Post("/api/telegram/webhook", cfg.TelegramWebhook.Receive)
	}

	// Dashboard API
	r.Route("/api/leads", func(r chi.Router) {
		if cfg.LeadsHandler != nil {
			r.Get("/", cfg.LeadsHandler.ListLeads)
			r.Patch("/{id}", cfg.LeadsHandler.UpdateStatus)
			r.Get("/{student_id}/history", cfg.LeadsHandler.History)
		}
		if cfg.DocumentsHandler != nil {
			r.Get("/{id}/documents", cfg.DocumentsHandler.List)
			r.Post("/{id}/documents", cfg.DocumentsHandler.Upload)
		}
	})
	if cfg.DocumentsHandler != nil {
		r.Route("/api/documents/{id}", func(r chi.Router) {
			r.Patch("/", cfg.DocumentsHandler.UpdateStatus)
			r.Get("/file", cfg.DocumentsHandler.Download)
		})
	}
	if cfg.AppointmentsHandler != nil {
		r.Get("/api/students/{id}/appointments", cfg.AppointmentsHandler.ListForStudent)
		r.Patch("/api/appointments/{id}", cfg.AppointmentsHandler.UpdateStatus)
	}
	if cfg.AnalyticsHandler != nil {
		r.Route("/api/analytics", func(r chi.Router) {
			r.Get("/stats", cfg.AnalyticsHandler.Stats)
			r.Get("/stream", cfg.AnalyticsHandler.Stream)
			r.Get("/stream/live", cfg.AnalyticsHandler.Live)
		})
	}

	return r
}
