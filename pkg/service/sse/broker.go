/*
Package sse carries engine events to HTTP subscribers as Server-Sent
Events. The broker is the only component shared across run goroutines.
*/
package sse

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

/*
Broker maintains a list of subscribers and fans every published event out
to them. Each event is sent as a single-line SSE message of the form:

data: {json}\n\n

Clients that fall behind lose events rather than slowing the engine down.
*/
type Broker struct {
	mu       sync.RWMutex
	clients  map[chan []byte]struct{}
	closed   bool
	testMode bool
}

func NewBroker() *Broker {
	return &Broker{
		clients: make(map[chan []byte]struct{}),
	}
}

/*
NewTestBroker creates a broker with a shorter heartbeat interval so tests
exercise the keep-alive path without waiting 25 seconds.
*/
func NewTestBroker() *Broker {
	return &Broker{
		clients:  make(map[chan []byte]struct{}),
		testMode: true,
	}
}

/*
Publish marshals the event and hands it to every connected client. It
never blocks and never reports failure to the caller; a run must not stall
because nobody is watching.
*/
func (broker *Broker) Publish(event any) {
	payload, err := json.Marshal(event)

	if err != nil {
		log.Error("failed to marshal event", "error", err)
		return
	}

	broker.mu.RLock()
	defer broker.mu.RUnlock()

	if broker.closed {
		return
	}

	for ch := range broker.clients {
		select {
		case ch <- payload:
		default:
			// slow client - drop the event to avoid blocking.
		}
	}
}

/*
Subscribe upgrades the HTTP connection to an SSE stream and blocks until
the client disconnects or the broker closes. Use from an HTTP handler:

broker.Subscribe(w, r)
*/
func (broker *Broker) Subscribe(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)

	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan []byte, 8)
	broker.mu.Lock()

	if broker.closed {
		broker.mu.Unlock()
		http.Error(w, "broker closed", http.StatusGone)
		return
	}

	broker.clients[ch] = struct{}{}
	broker.mu.Unlock()

	// heartbeat ticker to keep connections alive in the presence of proxies.
	tickerInterval := 25 * time.Second

	if broker.testMode {
		tickerInterval = 100 * time.Millisecond
	}

	ticker := time.NewTicker(tickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			broker.remove(ch)
			return
		case msg, open := <-ch:
			if !open {
				return
			}

			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(msg)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-ticker.C:
			// comment heartbeat
			_, _ = w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()
		}
	}
}

/*
Close disconnects all clients and prevents further subscriptions.
*/
func (broker *Broker) Close() {
	broker.mu.Lock()
	defer broker.mu.Unlock()

	if broker.closed {
		return
	}

	broker.closed = true

	for ch := range broker.clients {
		close(ch)
	}

	broker.clients = map[chan []byte]struct{}{}
}

func (broker *Broker) remove(ch chan []byte) {
	broker.mu.Lock()

	if _, ok := broker.clients[ch]; ok {
		delete(broker.clients, ch)
		close(ch)
	}

	broker.mu.Unlock()
}
