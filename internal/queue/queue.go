// Package queue defines the message transport contract the settlement
// pipeline runs on: at-least-once delivery with visibility-timeout leasing,
// explicit delete-to-acknowledge and delayed redelivery.
package queue

import (
	"context"
	"time"
)

// Message is a leased queue message. The receipt handle identifies the lease
// and must be passed back to Delete to acknowledge.
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// Queue is the transport used for settlement jobs and dead letters.
type Queue interface {
	// Send enqueues a message, optionally delaying its first delivery.
	Send(ctx context.Context, body string, delay time.Duration) error
	// Receive leases up to maxMessages messages. wait bounds the long poll;
	// visibility is the lease duration requested for the returned batch.
	Receive(ctx context.Context, maxMessages int, wait, visibility time.Duration) ([]Message, error)
	// Delete acknowledges a message by its receipt handle.
	Delete(ctx context.Context, receiptHandle string) error
}
