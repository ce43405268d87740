package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arvindkp/settlements/internal/queue"
)

type memoryMessage struct {
	msg         queue.Message
	availableAt time.Time
	inflightTil time.Time
}

// MemoryQueue is an in-memory queue with the same semantics the pipeline
// relies on: delayed first delivery, visibility leases on receive and
// delete-to-acknowledge. Undeleted messages become receivable again after
// their lease expires.
type MemoryQueue struct {
	mu       sync.Mutex
	messages []*memoryMessage
	seq      int

	// Delays records the delay passed to each Send, in order.
	Delays []time.Duration

	SendFunc    func(ctx context.Context, body string, delay time.Duration) error
	ReceiveFunc func(ctx context.Context, maxMessages int, wait, visibility time.Duration) ([]queue.Message, error)
	DeleteFunc  func(ctx context.Context, receiptHandle string) error
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Send(ctx context.Context, body string, delay time.Duration) error {
	if q.SendFunc != nil {
		return q.SendFunc(ctx, body, delay)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	q.Delays = append(q.Delays, delay)
	q.messages = append(q.messages, &memoryMessage{
		msg: queue.Message{
			ID:            fmt.Sprintf("msg-%d", q.seq),
			Body:          body,
			ReceiptHandle: fmt.Sprintf("rh-%d", q.seq),
		},
		availableAt: time.Now().Add(delay),
	})
	return nil
}

func (q *MemoryQueue) Receive(ctx context.Context, maxMessages int, wait, visibility time.Duration) ([]queue.Message, error) {
	if q.ReceiveFunc != nil {
		return q.ReceiveFunc(ctx, maxMessages, wait, visibility)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	var out []queue.Message
	for _, m := range q.messages {
		if len(out) >= maxMessages {
			break
		}
		if m.availableAt.After(now) || m.inflightTil.After(now) {
			continue
		}
		m.inflightTil = now.Add(visibility)
		out = append(out, m.msg)
	}
	return out, nil
}

func (q *MemoryQueue) Delete(ctx context.Context, receiptHandle string) error {
	if q.DeleteFunc != nil {
		return q.DeleteFunc(ctx, receiptHandle)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, m := range q.messages {
		if m.msg.ReceiptHandle == receiptHandle {
			q.messages = append(q.messages[:i], q.messages[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("unknown receipt handle %s", receiptHandle)
}

// Len returns the number of messages still in the queue, including delayed
// and inflight ones.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// Bodies returns the bodies of all messages still in the queue, in order.
func (q *MemoryQueue) Bodies() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.messages))
	for _, m := range q.messages {
		out = append(out, m.msg.Body)
	}
	return out
}
