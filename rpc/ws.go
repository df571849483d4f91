package rpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"padipay/core/types"
	"padipay/observability"
	"padipay/storage/auditlog"
)

const (
	wsWriteTimeout      = 10 * time.Second
	subscriberBuffer    = 256
	maxBacklogEvents    = 1000
	defaultListPageSize = 100
)

// History serves previously committed events for replay.
type History interface {
	List(from uint64, limit int) ([]auditlog.Record, error)
}

// EventHub fans committed ledger events out to websocket subscribers. It is
// registered with the ledger as an event sink.
type EventHub struct {
	mu      sync.Mutex
	subs    map[chan StreamEvent]struct{}
	closed  bool
	history History
	logger  *slog.Logger
}

func NewEventHub(history History, logger *slog.Logger) *EventHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHub{subs: make(map[chan StreamEvent]struct{}), history: history, logger: logger}
}

// Append implements the ledger event sink. Slow subscribers lose events
// rather than blocking the ledger.
func (h *EventHub) Append(height uint64, evts []*types.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	for _, evt := range evts {
		if evt == nil {
			continue
		}
		payload := streamEventFrom(height, evt)
		for ch := range h.subs {
			select {
			case ch <- payload:
				observability.Events().RecordStreamed()
			default:
				observability.Events().RecordDropped()
			}
		}
	}
	return nil
}

func (h *EventHub) subscribe() (chan StreamEvent, func()) {
	ch := make(chan StreamEvent, subscriberBuffer)
	h.mu.Lock()
	if h.closed {
		close(ch)
		h.mu.Unlock()
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
}

// Close disconnects every subscriber.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

// Subscribers reports the number of connected streams.
func (h *EventHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	var from uint64
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid from cursor", http.StatusBadRequest)
			return
		}
		from = parsed
	}
	opts := &websocket.AcceptOptions{OriginPatterns: s.cfg.AllowedOrigins}
	if len(opts.OriginPatterns) == 0 {
		opts.OriginPatterns = []string{"*"}
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	ctx := conn.CloseRead(r.Context())
	if err := s.streamEvents(ctx, conn, from); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			s.logger.Debug("event stream ended",
				slog.String("request_id", requestID(r.Context())),
				slog.Any("error", err))
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, from uint64) error {
	updates, cancel := s.hub.subscribe()
	defer cancel()

	var replayedHeight uint64
	if from > 0 && s.hub.history != nil {
		backlog, err := s.hub.history.List(from, maxBacklogEvents)
		if err != nil {
			return err
		}
		for _, rec := range backlog {
			if err := writeStreamEvent(ctx, conn, StreamEvent{Height: rec.Height, Type: rec.Type, Attributes: rec.Attributes}); err != nil {
				return err
			}
			replayedHeight = rec.Height
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Height <= replayedHeight {
				continue
			}
			if err := writeStreamEvent(ctx, conn, update); err != nil {
				return err
			}
		}
	}
}

func writeStreamEvent(ctx context.Context, conn *websocket.Conn, update StreamEvent) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

type eventsListParams struct {
	From  uint64 `json:"from"`
	Limit int    `json:"limit,omitempty"`
}

func (s *Server) handleEventsList(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if s.hub == nil || s.hub.history == nil {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "event history not enabled", nil)
		return
	}
	var params eventsListParams
	if !decodeParams(w, req, &params) {
		return
	}
	if params.Limit <= 0 || params.Limit > maxBacklogEvents {
		params.Limit = defaultListPageSize
	}
	records, err := s.hub.history.List(params.From, params.Limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to read event history", err.Error())
		return
	}
	writeResult(w, req.ID, records)
}
