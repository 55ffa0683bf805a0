// Package redisstep stores delayed workflow steps in a Redis sorted set so
// several worker processes can share one schedule.
package redisstep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/atsflow/atsflow/pkg/models"
	redis "github.com/redis/go-redis/v9"
)

const defaultPrefix = "atsflow:steps"

// claimScript moves a member's score to ARGV[3] only while it is at or
// below ARGV[2].
var claimScript = redis.NewScript(`
local score = redis.call('ZSCORE', KEYS[1], ARGV[1])
if not score or tonumber(score) > tonumber(ARGV[2]) then
	return 0
end
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[1])
return 1
`)

// Store implements persistence.ScheduledStepRepository. Members of the due
// set are "<executionID>:<stepIndex>" scored by the due time in milliseconds.
type Store struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New connects to the Redis instance described by url (redis://host:port/db).
func New(ctx context.Context, logger *slog.Logger, url string, opts ...Option) (*Store, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return NewWithClient(client, logger, opts...), nil
}

func NewWithClient(client redis.UniversalClient, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: defaultPrefix,
		logger: logger.With("module", "redis_step_store"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) dueKey() string {
	return s.prefix + ":due"
}

func (s *Store) createdKey() string {
	return s.prefix + ":created"
}

func (s *Store) executionKey(executionID string) string {
	return s.prefix + ":execution:" + executionID
}

func member(executionID string, stepIndex int) string {
	return executionID + ":" + strconv.Itoa(stepIndex)
}

func parseMember(m string) (string, int, error) {
	i := strings.LastIndex(m, ":")
	if i < 0 {
		return "", 0, fmt.Errorf("malformed step member %q", m)
	}

	idx, err := strconv.Atoi(m[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("malformed step member %q: %w", m, err)
	}

	return m[:i], idx, nil
}

func (s *Store) Schedule(ctx context.Context, step *models.ScheduledStep) error {
	m := member(step.ExecutionID, step.StepIndex)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, s.dueKey(), redis.Z{Score: float64(step.DueAt.UnixMilli()), Member: m})
		pipe.HSet(ctx, s.createdKey(), m, step.CreatedAt.UnixMilli())
		pipe.SAdd(ctx, s.executionKey(step.ExecutionID), step.StepIndex)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to schedule step: %w", err)
	}

	return nil
}

func (s *Store) ScheduleIfAbsent(ctx context.Context, step *models.ScheduledStep) (bool, error) {
	m := member(step.ExecutionID, step.StepIndex)

	added, err := s.client.ZAddNX(ctx, s.dueKey(), redis.Z{Score: float64(step.DueAt.UnixMilli()), Member: m}).Result()
	if err != nil {
		return false, fmt.Errorf("failed to schedule step: %w", err)
	}

	if added == 0 {
		return false, nil
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.createdKey(), m, step.CreatedAt.UnixMilli())
		pipe.SAdd(ctx, s.executionKey(step.ExecutionID), step.StepIndex)

		return nil
	})
	if err != nil {
		return true, fmt.Errorf("failed to record step metadata: %w", err)
	}

	return true, nil
}

// Claim leases a due step. The script runs atomically, so of several workers
// polling the same due step only one moves it.
func (s *Store) Claim(ctx context.Context, executionID string, stepIndex int, now, until time.Time) (bool, error) {
	moved, err := claimScript.Run(ctx, s.client, []string{s.dueKey()},
		member(executionID, stepIndex), now.UnixMilli(), until.UnixMilli()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to claim scheduled step: %w", err)
	}

	return moved == 1, nil
}

func (s *Store) Due(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledStep, error) {
	if limit <= 0 {
		limit = 100
	}

	entries, err := s.client.ZRangeByScoreWithScores(ctx, s.dueKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query due steps: %w", err)
	}

	steps := make([]*models.ScheduledStep, 0, len(entries))

	for _, entry := range entries {
		m, ok := entry.Member.(string)
		if !ok {
			continue
		}

		executionID, idx, err := parseMember(m)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping malformed scheduled step", "member", m, "error", err)

			continue
		}

		step := &models.ScheduledStep{
			ExecutionID: executionID,
			StepIndex:   idx,
			DueAt:       time.UnixMilli(int64(entry.Score)).UTC(),
		}

		created, err := s.client.HGet(ctx, s.createdKey(), m).Int64()
		if err == nil {
			step.CreatedAt = time.UnixMilli(created).UTC()
		} else if !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to read step metadata: %w", err)
		}

		steps = append(steps, step)
	}

	return steps, nil
}

// Delete removes a step once it has run.
func (s *Store) Delete(ctx context.Context, executionID string, stepIndex int) (bool, error) {
	m := member(executionID, stepIndex)

	removed, err := s.client.ZRem(ctx, s.dueKey(), m).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete scheduled step: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.createdKey(), m)
		pipe.SRem(ctx, s.executionKey(executionID), stepIndex)

		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to clean step metadata", "member", m, "error", err)
	}

	return removed == 1, nil
}

func (s *Store) DeleteByExecution(ctx context.Context, executionID string) error {
	indexes, err := s.client.SMembers(ctx, s.executionKey(executionID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list scheduled steps: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, idx := range indexes {
			m := executionID + ":" + idx
			pipe.ZRem(ctx, s.dueKey(), m)
			pipe.HDel(ctx, s.createdKey(), m)
		}

		pipe.Del(ctx, s.executionKey(executionID))

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete scheduled steps: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
