package sqs

import (
	"context"
	"fmt"
	"time"

	appqueue "github.com/arvindkp/settlements/internal/queue"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQS caps per-message delays at 15 minutes.
const maxDelay = 900 * time.Second

// Queue adapts an SQS queue to the pipeline's queue contract.
type Queue struct {
	client   *sqs.Client
	queueURL string
}

// New wraps the SQS queue at the given URL.
func New(client *sqs.Client, queueURL string) *Queue {
	return &Queue{client: client, queueURL: queueURL}
}

// Resolve looks a queue URL up by name.
func Resolve(ctx context.Context, client *sqs.Client, name string) (string, error) {
	out, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("resolve queue url for %s: %w", name, err)
	}
	return *out.QueueUrl, nil
}

func (q *Queue) Send(ctx context.Context, body string, delay time.Duration) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(body),
	}
	if delay > 0 {
		input.DelaySeconds = delaySeconds(delay)
	}
	if _, err := q.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("sqs send: %w", err)
	}
	return nil
}

func (q *Queue) Receive(ctx context.Context, maxMessages int, wait, visibility time.Duration) ([]appqueue.Message, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: int32(maxMessages),
		WaitTimeSeconds:     int32(wait / time.Second),
		VisibilityTimeout:   int32(visibility / time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("sqs receive: %w", err)
	}

	msgs := make([]appqueue.Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, appqueue.Message{
			ID:            aws.ToString(m.MessageId),
			Body:          aws.ToString(m.Body),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
		})
	}
	return msgs, nil
}

func (q *Queue) Delete(ctx context.Context, receiptHandle string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("sqs delete: %w", err)
	}
	return nil
}

// delaySeconds rounds a delay up to whole seconds within SQS limits.
func delaySeconds(d time.Duration) int32 {
	if d > maxDelay {
		d = maxDelay
	}
	secs := int32((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
