// Package feed serves the game state and event log over HTTP and pushes new
// events to WebSocket subscribers.
//
// Instructions may be committed by other processes sharing the database, so
// the server discovers new events by polling the store rather than through
// engine subscriptions.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/HouseOfHufflepuff/kill/internal/game"
)

const (
	pageSize     = 256
	writeTimeout = 5 * time.Second
	readTimeout  = 60 * time.Second
)

// EventLog is the persisted event stream.
type EventLog interface {
	Events(ctx context.Context, after uint64, limit int) ([]game.Event, error)
}

// State answers the board queries behind GET /state.
type State interface {
	Now() uint64
	Config(ctx context.Context) (*game.EconomyConfig, error)
	RipeStacks(ctx context.Context, limit int) ([]game.RipeStack, error)
}

// Options tunes a Server.
type Options struct {
	Poll        time.Duration
	AllowRemote bool
	// Sink receives every newly observed event in order, e.g. a journal.
	Sink func(game.Event) error
}

// Server is the read-only observer endpoint.
type Server struct {
	events EventLog
	state  State
	log    *log.Logger
	opts   Options

	upgrader websocket.Upgrader

	mu      sync.Mutex
	head    uint64
	clients map[chan uint64]struct{}
}

// StateResponse is the body of GET /state.
type StateResponse struct {
	Slot        uint64              `json:"slot"`
	Initialized bool                `json:"initialized"`
	Config      *game.EconomyConfig `json:"config,omitempty"`
	Stacks      []game.RipeStack    `json:"stacks"`
	Head        uint64              `json:"head"`
}

// NewServer creates a server. head is the sequence number after which
// events count as new; pass 0 to replay the whole log to the sink.
func NewServer(events EventLog, state State, logger *log.Logger, head uint64, opts Options) *Server {
	if opts.Poll <= 0 {
		opts.Poll = 500 * time.Millisecond
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{
		events: events,
		state:  state,
		log:    logger,
		opts:   opts,
		head:   head,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[chan uint64]struct{}),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/state", s.guard(s.handleState))
	mux.HandleFunc("/events", s.guard(s.handleEvents))
	mux.HandleFunc("/ws", s.guard(s.handleWS))
	return mux
}

// Run polls the event log until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.Poll)
	defer ticker.Stop()
	for {
		if err := s.Poll(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("poll failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll reads events past the current head, hands them to the sink and
// wakes every subscriber. The head only moves past events the sink
// accepted, so a failed page or sink write is retried on the next poll
// without duplicating what the sink already has.
func (s *Server) Poll(ctx context.Context) error {
	s.mu.Lock()
	head := s.head
	s.mu.Unlock()

	for {
		page, err := s.events.Events(ctx, head, pageSize)
		if err != nil {
			return err
		}
		for _, ev := range page {
			if s.opts.Sink != nil {
				if err := s.opts.Sink(ev); err != nil {
					s.advance(head)
					return fmt.Errorf("feed: sink rejected event %d: %w", ev.Seq, err)
				}
			}
			head = ev.Seq
		}
		s.advance(head)
		if len(page) < pageSize {
			return nil
		}
	}
}

// advance records head as delivered and wakes subscribers if it moved.
func (s *Server) advance(head uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if head <= s.head {
		return
	}
	s.head = head
	for ch := range s.clients {
		select {
		case ch <- head:
		default:
			// A wakeup is already pending; the client catches up from its cursor.
		}
	}
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	go func() { _ = s.Run(ctx) }()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("feed listening", "addr", ln.Addr().String(), "remote", s.opts.AllowRemote)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.opts.AllowRemote && !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		next(rw, r)
	}
}

func (s *Server) handleState(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	resp := StateResponse{Slot: s.state.Now(), Stacks: []game.RipeStack{}}

	cfg, err := s.state.Config(ctx)
	switch {
	case errors.Is(err, game.ErrNotInitialized):
	case err != nil:
		s.fail(rw, err)
		return
	default:
		resp.Initialized = true
		resp.Config = cfg
	}

	stacks, err := s.state.RipeStacks(ctx, 0)
	if err != nil {
		s.fail(rw, err)
		return
	}
	if stacks != nil {
		resp.Stacks = stacks
	}

	s.mu.Lock()
	resp.Head = s.head
	s.mu.Unlock()

	writeJSON(rw, resp)
}

func (s *Server) handleEvents(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	after, err := queryUint(r, "after", 0)
	if err != nil {
		http.Error(rw, "bad after", http.StatusBadRequest)
		return
	}
	limit, err := queryUint(r, "limit", pageSize)
	if err != nil || limit == 0 || limit > 4*pageSize {
		http.Error(rw, "bad limit", http.StatusBadRequest)
		return
	}

	events, err := s.events.Events(r.Context(), after, int(limit))
	if err != nil {
		s.fail(rw, err)
		return
	}
	if events == nil {
		events = []game.Event{}
	}
	writeJSON(rw, events)
}

// handleWS streams events as JSON text frames. The optional after query
// parameter replays history first; by default only new events are sent.
func (s *Server) handleWS(rw http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cursor := s.head
	s.mu.Unlock()
	if r.URL.Query().Has("after") {
		after, err := queryUint(r, "after", 0)
		if err != nil {
			http.Error(rw, "bad after", http.StatusBadRequest)
			return
		}
		cursor = after
	}

	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	wake := make(chan uint64, 1)
	s.mu.Lock()
	s.clients[wake] = struct{}{}
	head := s.head
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, wake)
		s.mu.Unlock()
	}()
	if head > cursor {
		select {
		case wake <- head:
		default:
		}
	}

	s.log.Info("subscriber joined", "remote", r.RemoteAddr, "cursor", cursor)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		// Drain client frames so control messages are processed.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
			_ = conn.Close()
			<-done
			s.log.Info("subscriber left", "remote", r.RemoteAddr, "cursor", cursor)
			return
		case target := <-wake:
			next, err := s.flush(ctx, conn, cursor, target)
			cursor = next
			if err != nil {
				cancel()
			}
		}
	}
}

// flush sends every event in (cursor, head] and returns the new cursor.
func (s *Server) flush(ctx context.Context, conn *websocket.Conn, cursor, head uint64) (uint64, error) {
	for cursor < head {
		page, err := s.events.Events(ctx, cursor, pageSize)
		if err != nil {
			return cursor, err
		}
		if len(page) == 0 {
			return cursor, nil
		}
		for _, ev := range page {
			if ev.Seq > head {
				return cursor, nil
			}
			b, err := json.Marshal(ev)
			if err != nil {
				return cursor, err
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return cursor, err
			}
			cursor = ev.Seq
		}
	}
	return cursor, nil
}

func (s *Server) fail(rw http.ResponseWriter, err error) {
	s.log.Error("feed request failed", "err", err)
	http.Error(rw, "internal error", http.StatusInternalServerError)
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(v)
}

func queryUint(r *http.Request, key string, def uint64) (uint64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.ParseUint(v, 10, 64)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
