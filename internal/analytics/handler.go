package analytics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/studyvisa-ai-platform/internal/chatlog"
	"github.com/wolfman30/studyvisa-ai-platform/internal/http/respond"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

const (
	streamLimit         = 50
	defaultPollInterval = 2 * time.Second
	streamTimeFormat    = "03:04 PM"
)

type streamSource interface {
	Recent(ctx context.Context, limit int) ([]chatlog.Entry, error)
	Since(ctx context.Context, afterID int64, limit int) ([]chatlog.Entry, error)
}

// StatsResponse is the body of GET /api/analytics/stats.
type StatsResponse struct {
	TotalLeads         int64  `json:"total_leads"`
	ApprovedVisas      int64  `json:"approved_visas"`
	ActiveApplications int64  `json:"active_applications"`
	AIEngagement       string `json:"ai_engagement"`
}

// StreamItem is one chat line in the dashboard feed.
type StreamItem struct {
	ID        int64          `json:"id"`
	Sender    chatlog.Sender `json:"sender"`
	Text      string         `json:"text"`
	Time      string         `json:"time"`
	StudentID int64          `json:"student_id"`
}

// Handler serves the analytics endpoints.
type Handler struct {
	counter      Counter
	stream       streamSource
	gatherer     prometheus.Gatherer
	pollInterval time.Duration
	logger       *logging.Logger
}

// NewHandler wires the analytics endpoints. gatherer may be nil, which reports no engagement.
func NewHandler(counter Counter, stream streamSource, gatherer prometheus.Gatherer, logger *logging.Logger) *Handler {
	if counter == nil {
		panic("analytics: counter required")
	}
	if stream == nil {
		panic("analytics: stream source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		counter:      counter,
		stream:       stream,
		gatherer:     gatherer,
		pollInterval: defaultPollInterval,
		logger:       logger,
	}
}

// SetPollInterval changes how often the live stream checks for new entries.
func (h *Handler) SetPollInterval(d time.Duration) {
	if d > 0 {
		h.pollInterval = d
	}
}

// Stats handles GET /api/analytics/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.counter.Counts(r.Context())
	if err != nil {
		h.logger.Error("failed to load analytics counts", "error", err)
		respond.InternalError(w, err)
		return
	}
	engagement, err := ReadEngagement(h.gatherer)
	if err != nil {
		h.logger.Warn("failed to read engagement metrics", "error", err)
	}
	respond.JSON(w, http.StatusOK, StatsResponse{
		TotalLeads:         counts.TotalLeads,
		ApprovedVisas:      counts.ApprovedVisas,
		ActiveApplications: counts.ActiveApplications,
		AIEngagement:       engagement.Percent(),
	})
}

// Stream handles GET /api/analytics/stream.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	entries, err := h.stream.Recent(r.Context(), streamLimit)
	if err != nil {
		h.logger.Error("failed to load chat stream", "error", err)
		respond.InternalError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, toStreamItems(entries))
}

// Live upgrades to a WebSocket that pushes chat lines as they are logged.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveLive(r.Context(), conn)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveLive(ctx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Client frames are ignored; a read error means the dashboard went away.
	go func() {
		defer cancel()
		var discard any
		for {
			if err := websocket.JSON.Receive(conn, &discard); err != nil {
				return
			}
		}
	}()

	backlog, err := h.stream.Recent(ctx, streamLimit)
	if err != nil {
		h.logger.Error("live stream: load backlog failed", "error", err)
		return
	}
	var lastID int64
	for _, item := range toStreamItems(backlog) {
		if err := websocket.JSON.Send(conn, item); err != nil {
			return
		}
		if item.ID > lastID {
			lastID = item.ID
		}
	}

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		entries, err := h.stream.Since(ctx, lastID, streamLimit)
		if err != nil {
			h.logger.Warn("live stream: poll failed", "error", err)
			continue
		}
		for _, item := range toStreamItems(entries) {
			if err := websocket.JSON.Send(conn, item); err != nil {
				h.logger.Debug("live stream: connection closed", "error", err)
				return
			}
			lastID = item.ID
		}
	}
}

func toStreamItems(entries []chatlog.Entry) []StreamItem {
	items := make([]StreamItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, StreamItem{
			ID:        e.ID,
			Sender:    e.Sender,
			Text:      e.Message,
			Time:      e.CreatedAt.Format(streamTimeFormat),
			StudentID: e.StudentID,
		})
	}
	return items
}
