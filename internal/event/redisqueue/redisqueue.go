// Package redisqueue publishes events as JSON jobs on Redis lists, one list per
// queue. Workers consume with BRPOP, so LPUSH gives FIFO order.
package redisqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/proposalflow/internal/event"
)

// Job is the envelope stored on the list.
type Job struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Data       event.Event `json:"data"`
	Attempts   int         `json:"attempts"`
	EnqueuedAt time.Time   `json:"enqueued_at"`
}

type Publisher struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

func New(client redis.Cmdable, prefix string) *Publisher {
	return &Publisher{client: client, prefix: prefix, now: time.Now}
}

// Key is the Redis list holding jobs for queue.
func (p *Publisher) Key(queue string) string {
	return p.prefix + ":" + queue + ":wait"
}

func (p *Publisher) Publish(ctx context.Context, queue string, e event.Event) error {
	body, err := json.Marshal(Job{
		ID:         e.ID.String(),
		Name:       string(e.Type),
		Data:       e,
		EnqueuedAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding job: %w", err)
	}

	if err := p.client.LPush(ctx, p.Key(queue), body).Err(); err != nil {
		return fmt.Errorf("pushing job to %s: %w", queue, err)
	}

	return nil
}
