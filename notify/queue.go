package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"storefront/models"
	"storefront/utils"

	"github.com/redis/go-redis/v9"
)

const (
	pendingKey = "notify:email"
	retryKey   = "notify:email:retry"
	deadKey    = "notify:email:dead"

	maxBackoff = time.Hour
	popTimeout = 2 * time.Second
)

type Job struct {
	ID        string    `json:"id"`
	Message   Message   `json:"message"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"lastError,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// promoteScript moves due retries back onto the pending list.
var promoteScript = redis.NewScript(`
local due = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, 100)
for _, job in ipairs(due) do
	redis.call("ZREM", KEYS[1], job)
	redis.call("LPUSH", KEYS[2], job)
end
return #due
`)

// Queue is a Redis-backed email queue with delayed retries and a dead-letter list.
type Queue struct {
	conn        *redis.Client
	sender      Sender
	maxAttempts int
	baseDelay   time.Duration
	now         func() time.Time
}

func NewQueue(conn *redis.Client, sender Sender, maxAttempts int) *Queue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Queue{
		conn:        conn,
		sender:      sender,
		maxAttempts: maxAttempts,
		baseDelay:   30 * time.Second,
		now:         time.Now,
	}
}

// EnqueueOrderConfirmation queues the confirmation email for a paid order.
// Orders without an email address are skipped.
func (q *Queue) EnqueueOrderConfirmation(ctx context.Context, order models.Order, items []models.OrderItem) error {
	if order.Customer.Email == "" {
		log.Printf("[notify] %s: no email address, confirmation skipped", order.OrderID)
		return nil
	}
	return q.Enqueue(ctx, ComposeOrderConfirmation(order, items))
}

func (q *Queue) Enqueue(ctx context.Context, m Message) error {
	job := Job{ID: utils.GetUUID(), Message: m, CreatedAt: q.now()}
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.conn.LPush(ctx, pendingKey, raw).Err()
}

// Run processes jobs until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	log.Printf("[notify] worker started (max %d attempts)", q.maxAttempts)
	for {
		if ctx.Err() != nil {
			log.Printf("[notify] worker stopped")
			return
		}
		if err := q.promote(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[notify] promote retries: %v", err)
		}

		res, err := q.conn.BRPop(ctx, popTimeout, pendingKey).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("[notify] pop: %v", err)
				time.Sleep(time.Second)
			}
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			log.Printf("[notify] dropping malformed job: %v", err)
			q.conn.LPush(context.WithoutCancel(ctx), deadKey, res[1])
			continue
		}
		q.process(ctx, job)
	}
}

func (q *Queue) promote(ctx context.Context) error {
	now := strconv.FormatInt(q.now().Unix(), 10)
	return promoteScript.Run(ctx, q.conn, []string{retryKey, pendingKey}, now).Err()
}

func (q *Queue) process(ctx context.Context, job Job) {
	next, dueAt, dead := q.attempt(ctx, job)
	if next == nil {
		return
	}
	raw, err := json.Marshal(next)
	if err != nil {
		log.Printf("[notify] job %s: %v", job.ID, err)
		return
	}
	// the job is already off the pending list; requeue even when ctx is cancelled
	rctx := context.WithoutCancel(ctx)
	if dead {
		log.Printf("[notify] job %s to %s dead after %d attempts: %s", job.ID, job.Message.To, next.Attempts, next.LastError)
		err = q.conn.LPush(rctx, deadKey, raw).Err()
	} else {
		err = q.conn.ZAdd(rctx, retryKey, redis.Z{Score: float64(dueAt.Unix()), Member: raw}).Err()
	}
	if err != nil {
		log.Printf("[notify] job %s: requeue: %v", job.ID, err)
	}
}

// attempt sends job once. A nil job means it was delivered; otherwise the
// updated job is either dead or due again at the returned time.
func (q *Queue) attempt(ctx context.Context, job Job) (*Job, time.Time, bool) {
	err := q.sender.Send(ctx, job.Message)
	if err == nil {
		return nil, time.Time{}, false
	}
	if ctx.Err() != nil {
		// interrupted by shutdown; not counted as an attempt
		return &job, q.now(), false
	}
	job.Attempts++
	job.LastError = err.Error()
	if job.Attempts >= q.maxAttempts {
		return &job, time.Time{}, true
	}
	return &job, q.now().Add(Backoff(job.Attempts, q.baseDelay)), false
}

// Backoff is the delay before retry number attempt: base doubled per attempt,
// capped at one hour.
func Backoff(attempt int, base time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// Stats reports queue depths.
func (q *Queue) Stats(ctx context.Context) (map[string]int64, error) {
	pipe := q.conn.Pipeline()
	pending := pipe.LLen(ctx, pendingKey)
	retry := pipe.ZCard(ctx, retryKey)
	dead := pipe.LLen(ctx, deadKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	return map[string]int64{
		"pending": pending.Val(),
		"retry":   retry.Val(),
		"dead":    dead.Val(),
	}, nil
}
