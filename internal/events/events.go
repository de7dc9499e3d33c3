// Package events publishes a small JSON event to a Redis channel whenever
// a job reaches a terminal state, so downstream consumers can react
// without polling the status endpoint.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fusepool/sedsvc/internal/engine"
	"github.com/fusepool/sedsvc/internal/model"
)

const publishTimeout = 5 * time.Second

// Event is the payload published per terminal job.
type Event struct {
	JobID      string    `json:"job_id"`
	Status     string    `json:"status"`
	OutputType string    `json:"output_type,omitempty"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// publisher abstracts the single Redis operation the sink needs.
type publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type redisPublisher struct {
	client *redis.Client
}

func (p *redisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

// Sink decorates another sink with event publication. Publish failures
// are logged and swallowed: the outcome is already recorded by the time
// the event goes out, and a flaky broker must not fail the job.
type Sink struct {
	next    engine.Sink
	pub     publisher
	channel string
	logger  *slog.Logger
}

// NewSink wraps next with Redis event publication on the given channel.
func NewSink(next engine.Sink, client *redis.Client, channel string, logger *slog.Logger) *Sink {
	return &Sink{next: next, pub: &redisPublisher{client: client}, channel: channel, logger: logger}
}

// Dial parses a Redis URL, connects, and verifies the connection.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// OnSuccess delegates to the wrapped sink, then publishes a completion event.
func (s *Sink) OnSuccess(id string, res *model.Result) error {
	if err := s.next.OnSuccess(id, res); err != nil {
		return err
	}
	s.publish(Event{
		JobID:      id,
		Status:     model.StatusCompleted,
		OutputType: res.ContentType,
		FinishedAt: time.Now().UTC(),
	})
	return nil
}

// OnFailure delegates to the wrapped sink, then publishes a failure event.
func (s *Sink) OnFailure(id string, cause error) error {
	if err := s.next.OnFailure(id, cause); err != nil {
		return err
	}
	s.publish(Event{
		JobID:      id,
		Status:     model.StatusFailed,
		Error:      cause.Error(),
		FinishedAt: time.Now().UTC(),
	})
	return nil
}

func (s *Sink) publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("marshal event", "job_id", ev.JobID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := s.pub.Publish(ctx, s.channel, payload); err != nil {
		s.logger.Error("publish event", "job_id", ev.JobID, "channel", s.channel, "error", err)
	}
}
