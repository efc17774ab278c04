package wslogs

import (
	"sync"
	"time"
)

// Batcher collects the log messages of one run until Flush hands them to send
type Batcher struct {
	messages []Message
	runID    string
	send     func(*Batch)
	mu       sync.Mutex
}

// NewBatcher creates a batcher for runID. send is called from Flush and must not block for long.
func NewBatcher(runID string, send func(*Batch)) *Batcher {
	return &Batcher{
		messages: make([]Message, 0, 32),
		runID:    runID,
		send:     send,
	}
}

// Append adds a log message to the batch
func (b *Batcher) Append(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg)
}

// Flush sends the collected messages as one batch. An empty batch is not sent.
func (b *Batcher) Flush() {
	b.mu.Lock()
	if len(b.messages) == 0 {
		b.mu.Unlock()
		return
	}
	batch := &Batch{
		Messages:  b.messages,
		RunID:     b.runID,
		Timestamp: time.Now(),
	}
	// The sent batch keeps its slice; start a fresh one
	b.messages = make([]Message, 0, cap(b.messages))
	b.mu.Unlock()

	b.send(batch)
}

// Count returns the number of messages currently in the batch
func (b *Batcher) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}
