package events

import "sync"

/*
Recorder keeps every published event in order. Tests assert against the
recorded slice instead of reading a live stream.
*/
type Recorder struct {
	mu     sync.Mutex
	events []any
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (recorder *Recorder) Publish(event any) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	recorder.events = append(recorder.events, event)
}

// Events returns a copy of everything published so far.
func (recorder *Recorder) Events() []any {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	out := make([]any, len(recorder.events))
	copy(out, recorder.events)
	return out
}
