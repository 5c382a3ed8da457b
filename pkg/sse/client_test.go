package sse

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewClient(t *testing.T) {
	Convey("Given a stream URL", t, func() {
		url := "http://localhost:3210/events"

		Convey("When creating a new client", func() {
			client := NewClient(url)

			Convey("It should initialize correctly", func() {
				So(client.URL, ShouldEqual, url)
				So(client.Headers, ShouldNotBeNil)
				So(client.Metrics, ShouldNotBeNil)
				So(client.reconnectChan, ShouldNotBeNil)
				So(client.stopChan, ShouldNotBeNil)
			})
		})
	})
}

func TestSubscribeWithContext(t *testing.T) {
	payload := `{"type":"log","agent":"System","message":"Task automation completed.","log_type":"success"}`

	server, errTS := newTestServerStream(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "data: %s\n\n", payload)
		w.(http.Flusher).Flush()

		// Keep the stream open until the client walks away.
		<-r.Context().Done()
	}))
	if errTS != nil {
		t.Skip("network disabled; skipping SSE test")
	}
	defer server.Close()

	Convey("Given a running event stream", t, func() {
		client := NewClient(server.URL)

		Convey("When subscribing to events", func() {
			eventCh := make(chan *Event, 1)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			go client.SubscribeWithContext(ctx, "", func(event *Event) {
				select {
				case eventCh <- event:
				default:
				}
			})

			var received *Event

			select {
			case received = <-eventCh:
			case <-ctx.Done():
			}

			Convey("It should receive events", func() {
				So(received, ShouldNotBeNil)
				So(string(received.Data), ShouldEqual, payload)
			})
		})
	})
}

func TestReconnect(t *testing.T) {
	first := `{"type":"status_update","step_action":"Find the onboarding guide","status":"in-progress"}`
	second := `{"type":"status_update","step_action":"Find the onboarding guide","status":"completed"}`

	var connCount int
	var mu sync.Mutex
	serverDone := make(chan struct{})

	server, errTS := newTestServerStream(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		connCount++
		currentConn := connCount
		mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)

		// First connection: send one event and drop the stream.
		if currentConn == 1 {
			fmt.Fprintf(w, "data: %s\n\n", first)
			w.(http.Flusher).Flush()
			return
		}

		// Second connection: send the next event and keep the stream open.
		fmt.Fprintf(w, "data: %s\n\n", second)
		w.(http.Flusher).Flush()
		<-serverDone
	}))
	if errTS != nil {
		t.Skip("network disabled; skipping SSE test")
	}
	defer server.Close()
	defer close(serverDone)

	Convey("Given a stream that drops its first connection", t, func() {
		client := NewClient(server.URL)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When following the stream", func() {
			eventCh := make(chan *Event, 2)

			go client.SubscribeWithContext(ctx, "", func(event *Event) {
				select {
				case eventCh <- event:
				case <-ctx.Done():
				}
			})

			var received []string

			for len(received) < 2 {
				select {
				case event := <-eventCh:
					received = append(received, string(event.Data))
				case <-time.After(5 * time.Second):
					t.Fatal("timeout waiting for events")
				}
			}

			Convey("It should reconnect and continue receiving events", func() {
				mu.Lock()
				finalConnCount := connCount
				mu.Unlock()
				So(finalConnCount, ShouldEqual, 2)
				So(received[0], ShouldEqual, first)
				So(received[1], ShouldEqual, second)

				snapshot := client.Metrics.GetMetrics()
				So(snapshot["reconnections"], ShouldBeGreaterThanOrEqualTo, int64(1))
			})
		})
	})
}

func TestClose(t *testing.T) {
	Convey("Given a client that never connected", t, func() {
		client := NewClient("http://localhost:3210/events")

		Convey("When closing the client", func() {
			err := client.Close()

			Convey("It should close successfully", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}

// newTestServerStream guards httptest against sandboxes that refuse to
// open listeners, so the suite can skip instead of panicking.
func newTestServerStream(h http.Handler) (*httptest.Server, error) {
	var srv *httptest.Server
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("listener not permitted: %v", r)
			}
		}()
		srv = httptest.NewServer(h)
	}()
	return srv, err
}
