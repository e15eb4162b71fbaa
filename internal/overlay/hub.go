// Package overlay is the overlay surface: it pushes rendered watch-list rows
// to WebSocket observers and mounts or unmounts them with the widget flag.
package overlay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"dex_watch/internal/domain"
	"dex_watch/internal/infra"
	"dex_watch/internal/watch"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	writeTimeout = 10 * time.Second
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// Frame types.
const (
	FrameSnapshot = "snapshot" // full render after (re)mount
	FrameRows     = "rows"     // re-render after a store change
	FrameWidget   = "widget"   // flag changed
)

// Frame is one message pushed to an observer.
type Frame struct {
	Type    string       `json:"type"`
	Enabled bool         `json:"enabled"`
	Rows    []domain.Row `json:"rows,omitempty"`
}

// Hub serves overlay observers. Each connection reads the stores once,
// subscribes to the three change streams and unsubscribes when it ends.
type Hub struct {
	list    *watch.WatchList
	cache   *watch.QuoteCache
	flag    *watch.WidgetFlag
	metrics *infra.Metrics

	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a hub over the shared stores.
func NewHub(list *watch.WatchList, cache *watch.QuoteCache, flag *watch.WidgetFlag, metrics *infra.Metrics) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		list:    list,
		cache:   cache,
		flag:    flag,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// the overlay is injected into arbitrary pages
			CheckOrigin: func(*http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// ServeHTTP upgrades the request and serves the observer until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.ctx.Done():
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Overlay upgrade failed", slog.Any("error", err))
		return
	}

	h.wg.Add(1)
	defer h.wg.Done()

	s := &session{hub: h, conn: conn}
	s.run()
}

// Close disconnects every observer and waits for their sessions to end.
func (h *Hub) Close() {
	h.cancel()
	h.wg.Wait()
}

type session struct {
	hub     *Hub
	conn    *websocket.Conn
	writeMu sync.Mutex

	enabled bool
	items   []domain.Item
	quotes  domain.QuoteMap
	prev    map[string]decimal.Decimal
}

func (s *session) run() {
	h := s.hub
	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()
	defer s.conn.Close()

	if h.metrics != nil {
		h.metrics.IncrementObservers()
		defer h.metrics.DecrementObservers()
	}

	// subscribe before the initial read so no change is missed
	listFeed := h.list.Subscribe()
	defer listFeed.Close()
	quoteFeed := h.cache.Subscribe()
	defer quoteFeed.Close()
	flagFeed := h.flag.Subscribe()
	defer flagFeed.Close()

	go s.readLoop(cancel)

	enabled, err := h.flag.Enabled(ctx)
	if err != nil {
		slog.Warn("Overlay could not read widget flag", slog.Any("error", err))
		return
	}
	s.enabled = enabled
	if s.enabled {
		if err := s.mount(ctx); err != nil {
			slog.Debug("Overlay session ended", slog.Any("error", err))
			return
		}
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			s.writeClose()
			return
		case <-ticker.C:
			err = s.write(websocket.PingMessage, nil)
		case items, ok := <-listFeed.C():
			if !ok {
				return
			}
			s.items = items
			err = s.render(FrameRows)
		case quotes, ok := <-quoteFeed.C():
			if !ok {
				return
			}
			s.quotes = quotes
			err = s.render(FrameRows)
		case enabled, ok := <-flagFeed.C():
			if !ok {
				return
			}
			err = s.setEnabled(ctx, enabled)
		}
		if err != nil {
			slog.Debug("Overlay session ended", slog.Any("error", err))
			return
		}
	}
}

// mount reads both stores once and sends a full snapshot.
func (s *session) mount(ctx context.Context) error {
	items, err := s.hub.list.List(ctx)
	if err != nil {
		return err
	}
	quotes, err := s.hub.cache.Get(ctx)
	if err != nil {
		return err
	}
	s.items, s.quotes, s.prev = items, quotes, nil
	return s.render(FrameSnapshot)
}

func (s *session) setEnabled(ctx context.Context, enabled bool) error {
	if enabled == s.enabled {
		return nil
	}
	s.enabled = enabled
	if err := s.send(Frame{Type: FrameWidget, Enabled: enabled}); err != nil {
		return err
	}
	if enabled {
		return s.mount(ctx)
	}
	return nil
}

// render is a no-op while unmounted.
func (s *session) render(frameType string) error {
	if !s.enabled {
		return nil
	}
	rows := domain.BuildRows(s.items, s.quotes, s.prev)
	s.prev = domain.PriceMemo(s.items, s.quotes)
	return s.send(Frame{Type: frameType, Enabled: true, Rows: rows})
}

func (s *session) send(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return s.write(websocket.TextMessage, data)
}

func (s *session) write(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(messageType, data)
}

func (s *session) writeClose() {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
	_ = s.write(websocket.CloseMessage, msg)
}

// readLoop discards client messages and cancels the session when the
// connection goes away.
func (s *session) readLoop(cancel context.CancelFunc) {
	defer cancel()
	s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Overlay read error", slog.Any("error", err))
			}
			return
		}
	}
}
