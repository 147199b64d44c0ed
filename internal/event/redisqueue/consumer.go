package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Consumer pops jobs published by Publisher.
type Consumer struct {
	client redis.Cmdable
	prefix string
}

func NewConsumer(client redis.Cmdable, prefix string) *Consumer {
	return &Consumer{client: client, prefix: prefix}
}

func (c *Consumer) key(queue, state string) string {
	return c.prefix + ":" + queue + ":" + state
}

// FailedKey is the list holding jobs that exhausted their attempts.
func (c *Consumer) FailedKey(queue string) string {
	return c.key(queue, "failed")
}

// Next blocks up to timeout for a job on any of queues. It returns a nil job
// when the timeout elapses. A payload that does not decode is moved to the
// queue's failed list and reported as an error.
func (c *Consumer) Next(ctx context.Context, timeout time.Duration, queues ...string) (*Job, string, error) {
	keys := make([]string, len(queues))
	byKey := make(map[string]string, len(queues))

	for i, q := range queues {
		keys[i] = c.key(q, "wait")
		byKey[keys[i]] = q
	}

	res, err := c.client.BRPop(ctx, timeout, keys...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", nil
		}

		return nil, "", fmt.Errorf("popping job: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		decodeErr := fmt.Errorf("decoding job from %s: %w", res[0], err)

		if pushErr := c.client.LPush(ctx, c.FailedKey(byKey[res[0]]), res[1]).Err(); pushErr != nil {
			return nil, "", errors.Join(decodeErr, fmt.Errorf("burying undecodable job: %w", pushErr))
		}

		return nil, "", decodeErr
	}

	return &job, byKey[res[0]], nil
}

// Retry re-queues job behind the jobs already waiting, with one more attempt
// counted.
func (c *Consumer) Retry(ctx context.Context, queue string, job *Job) error {
	job.Attempts++

	return c.push(ctx, c.key(queue, "wait"), job)
}

// Bury moves job to the failed list of its queue.
func (c *Consumer) Bury(ctx context.Context, queue string, job *Job) error {
	return c.push(ctx, c.FailedKey(queue), job)
}

func (c *Consumer) push(ctx context.Context, key string, job *Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding job: %w", err)
	}

	if err := c.client.LPush(ctx, key, body).Err(); err != nil {
		return fmt.Errorf("pushing job to %s: %w", key, err)
	}

	return nil
}
