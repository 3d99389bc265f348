package http

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/atsim/pkg/domain"
	"github.com/aretw0/atsim/pkg/ports"
	"github.com/aretw0/atsim/pkg/stream"
	"github.com/gorilla/websocket"
)

// Close reasons for failed stream setups. Hub-initiated closes use the
// reasons defined in package stream.
const (
	reasonMissingToken   = "missing token"
	reasonMissingProcess = "missing process_id"
	reasonInvalidAuth    = "invalid authentication"
	reasonNotFound       = "process not found"
	reasonForbidden      = "forbidden"
	reasonInternal       = "internal error"
	reasonShutdown       = stream.ReasonShutdown
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// subscribe authenticates a stream request from its query parameters and
// attaches t to the hub. On failure t is closed with the matching reason.
func (s *Server) subscribe(r *http.Request, tokenParam, processParam *string, t ports.Transport) bool {
	var token, processID string
	if tokenParam != nil {
		token = *tokenParam
	}
	if processParam != nil {
		processID = *processParam
	}

	if token == "" {
		_ = t.Close(reasonMissingToken)
		return false
	}
	if processID == "" {
		_ = t.Close(reasonMissingProcess)
		return false
	}

	ownerID, err := s.verifier.Verify(r.Context(), token)
	if err != nil {
		_ = t.Close(reasonInvalidAuth)
		return false
	}

	if _, err := s.svc.Subscribe(r.Context(), ownerID, processID, t); err != nil {
		reason := closeReason(err)
		if reason == reasonInternal {
			s.logger.Error("Stream subscription failed", "process_id", processID, "owner_id", ownerID, "err", err)
		} else {
			s.logger.Debug("Stream rejected", "process_id", processID, "owner_id", ownerID, "err", err)
		}
		// The hub closes the transport itself when it is shutting down.
		_ = t.Close(reason)
		return false
	}
	return true
}

// StreamWebSocket handles GET /processes/ws. Every tick is one text message.
// Setup failures are reported as a 1008 close frame carrying the reason,
// internal failures as 1011.
func (s *Server) StreamWebSocket(w http.ResponseWriter, r *http.Request, params StreamWebSocketParams) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("WebSocket upgrade failed", "err", err)
		return
	}

	t := newWSTransport(conn, s.writeWait)
	go t.readLoop()

	if !s.subscribe(r, params.Token, params.ProcessId, t) {
		return
	}
	<-t.Done()
	_ = conn.Close()
}

// StreamEvents handles GET /processes/events. Every tick is one "data:"
// event; the end of the stream is an "event: close" whose data is the reason.
func (s *Server) StreamEvents(w http.ResponseWriter, r *http.Request, params StreamEventsParams) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	t := newSSETransport(w, flusher)
	if !s.subscribe(r, params.Token, params.ProcessId, t) {
		return
	}

	select {
	case <-r.Context().Done():
		t.finish()
	case <-t.Done():
	}
}

// wsTransport adapts a WebSocket connection to ports.Transport.
type wsTransport struct {
	conn      *websocket.Conn
	writeWait time.Duration

	mu       sync.Mutex
	done     chan struct{}
	doneOnce sync.Once
}

func newWSTransport(conn *websocket.Conn, writeWait time.Duration) *wsTransport {
	return &wsTransport{
		conn:      conn,
		writeWait: writeWait,
		done:      make(chan struct{}),
	}
}

func (t *wsTransport) Send(snap *domain.TickSnapshot) error {
	data, err := stream.Encode(snap)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeWait))
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransportDisconnected, err)
	}
	return nil
}

func closeCode(reason string) int {
	switch reason {
	case reasonShutdown:
		return websocket.CloseGoingAway
	case reasonInternal:
		return websocket.CloseInternalServerErr
	default:
		return websocket.ClosePolicyViolation
	}
}

func (t *wsTransport) Close(reason string) error {
	code := closeCode(reason)

	msg := websocket.FormatCloseMessage(code, reason)
	err := t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(t.writeWait))
	t.finish()
	if cerr := t.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

func (t *wsTransport) Done() <-chan struct{} { return t.done }

func (t *wsTransport) finish() {
	t.doneOnce.Do(func() { close(t.done) })
}

// readLoop drains client frames so control messages are processed and a
// disconnect is noticed.
func (t *wsTransport) readLoop() {
	defer t.finish()
	for {
		if _, _, err := t.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// sseTransport writes Server-Sent Events to a streaming response.
type sseTransport struct {
	w       http.ResponseWriter
	flusher http.Flusher

	mu       sync.Mutex
	closed   bool
	done     chan struct{}
	doneOnce sync.Once
}

func newSSETransport(w http.ResponseWriter, flusher http.Flusher) *sseTransport {
	return &sseTransport{w: w, flusher: flusher, done: make(chan struct{})}
}

func (t *sseTransport) Send(snap *domain.TickSnapshot) error {
	data, err := stream.Encode(snap)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return domain.ErrTransportDisconnected
	}
	if _, err := fmt.Fprintf(t.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransportDisconnected, err)
	}
	t.flusher.Flush()
	return nil
}

func (t *sseTransport) Close(reason string) error {
	t.mu.Lock()
	var err error
	if !t.closed {
		_, err = fmt.Fprintf(t.w, "event: close\ndata: %s\n\n", reason)
		t.flusher.Flush()
		t.closed = true
	}
	t.mu.Unlock()
	t.finish()
	return err
}

func (t *sseTransport) Done() <-chan struct{} { return t.done }

// finish stops all writes. The response writer must not be touched once the
// handler returned.
func (t *sseTransport) finish() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.doneOnce.Do(func() { close(t.done) })
}
