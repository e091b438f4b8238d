// Package sse implements a Server-Sent Events broker that tells editor
// clients about saves, uploads and inbox activity.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	// Session scopes the event to clients following that session. Empty
	// means every client.
	Session string `json:"-"`
}

// Event types.
const (
	TypeArticleSaved    = "article.saved"
	TypeImageUploaded   = "image.uploaded"
	TypeImageRemoved    = "image.removed"
	TypeImageProgress   = "image.progress"
	TypeHeaderChanged   = "header.changed"
	TypeLedgerUpdated   = "ledger.updated"
	TypeDraftNormalized = "draft.normalized"
	TypeDraftRemoved    = "draft.removed"
)

// heartbeat keeps idle streams open through proxies.
const heartbeat = 30 * time.Second

type subscribeReq struct {
	ch      chan []byte
	session string
}

type imageEventReq struct {
	kind    string
	session string
	url     string
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + per-session ledger throttle timestamps). Public methods communicate
// with this loop through channels, so no mutexes are required.
type Broker struct {
	ledgerMin time.Duration

	subscribeCh   chan subscribeReq
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	imageEventCh  chan imageEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. ledger.updated is sent at most once
// per ledgerThrottle for each session.
func NewBroker(ledgerThrottle time.Duration) *Broker {
	if ledgerThrottle <= 0 {
		ledgerThrottle = 2 * time.Second
	}

	b := &Broker{
		ledgerMin:     ledgerThrottle,
		subscribeCh:   make(chan subscribeReq),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		imageEventCh:  make(chan imageEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	// clients maps each channel to the session it follows ("" for all).
	clients := make(map[chan []byte]string)
	lastLedger := make(map[string]time.Time)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		msg := fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)
		raw := []byte(msg)

		for ch, follow := range clients {
			if event.Session != "" && follow != event.Session {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case req := <-b.subscribeCh:
			clients[req.ch] = req.session

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.imageEventCh:
			broadcast(Event{Type: req.kind, Session: req.session, Data: map[string]string{"session": req.session, "url": req.url}})

			now := time.Now()
			if now.Sub(lastLedger[req.session]) >= b.ledgerMin {
				lastLedger[req.session] = now
				broadcast(Event{Type: TypeLedgerUpdated, Session: req.session, Data: map[string]string{"session": req.session}})
			}
			for id, at := range lastLedger {
				if now.Sub(at) >= b.ledgerMin {
					delete(lastLedger, id)
				}
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel. Session-scoped
// events reach only clients following that session; unscoped events are
// always delivered.
func (b *Broker) Subscribe(session string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscribeReq{ch: ch, session: session}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishImageEvent publishes an image change in a session followed by a
// throttled ledger.updated for that session.
func (b *Broker) PublishImageEvent(kind, session, url string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.imageEventCh <- imageEventReq{kind: kind, session: session, url: url}:
	case <-b.stopped:
	}
}

// PublishDraftEvent publishes an inbox change. kind is "normalized" or
// "removed".
func (b *Broker) PublishDraftEvent(kind, path string) {
	typ := TypeDraftNormalized
	if kind == "removed" {
		typ = TypeDraftRemoved
	}
	b.Publish(Event{Type: typ, Data: map[string]string{"path": path}})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). The optional
// "session" query parameter follows a single editing session.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(r.URL.Query().Get("session"))
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
