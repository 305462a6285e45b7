package notifier

import (
	"context"
	"errors"
	"strconv"
	"sync"
)

// SentMessage is one delivery captured by the Recorder.
type SentMessage struct {
	To       string
	Subject  string
	HTMLBody string
}

// Recorder is a Notifier for tests: it records every send and can be told
// to fail.
type Recorder struct {
	mu       sync.Mutex
	messages []SentMessage

	// FailWith, when set, makes every send return this error.
	FailWith error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) SendEmail(_ context.Context, to, subject, htmlBody string) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWith != nil {
		return Result{Success: false, Error: r.FailWith.Error()}, r.FailWith
	}

	r.messages = append(r.messages, SentMessage{To: to, Subject: subject, HTMLBody: htmlBody})

	return Result{Success: true, MessageID: "msg-" + strconv.Itoa(len(r.messages))}, nil
}

// Messages returns a copy of everything sent so far.
func (r *Recorder) Messages() []SentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]SentMessage, len(r.messages))
	copy(out, r.messages)

	return out
}

var ErrTransportDown = errors.New("email transport unavailable")
