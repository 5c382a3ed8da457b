package events

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

/*
Publisher fans engine events out to whoever is watching a run. Publishing
must never block the engine and must never fail a run; implementations drop
rather than stall.
*/
type Publisher interface {
	Publish(event any)
}

/*
Writer publishes each event as one line of JSON on an io.Writer. The CLI
runner uses it to mirror the stream onto stdout.
*/
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

func (writer *Writer) Publish(event any) {
	payload, err := json.Marshal(event)

	if err != nil {
		log.Error("failed to marshal event", "error", err)
		return
	}

	writer.mu.Lock()
	defer writer.mu.Unlock()

	fmt.Fprintln(writer.out, string(payload))
}
