package history

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jlammi/stride/pkg/api"
)

// RedisRunStore is a RunStore backed by Redis.
// It uses a simple key structure:
//
//	<prefix>run:<id>              => gob-encoded redisRunPayload
//	<prefix>idx:all               => SET of all run IDs
//	<prefix>idx:name:<name>       => SET of run IDs for a given name
//	<prefix>idx:kind:<kind>       => SET of run IDs for a given kind
//	<prefix>idx:status:<status>   => SET of run IDs for a given status
//
// The indexes are best-effort; they are always updated on Save/Update, and
// ListRuns uses set operations for filtering.
type RedisRunStore struct {
	client *redis.Client
	prefix string
}

var _ RunStore = (*RedisRunStore)(nil)

type redisRunPayload struct {
	ID         string
	Name       string
	Kind       string
	Status     string
	Attempts   int
	Output     []byte
	Results    []byte
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewRedisRunStore creates a RedisRunStore.
// prefix is optional but recommended (e.g. "stride:").
func NewRedisRunStore(client *redis.Client, prefix string) *RedisRunStore {
	if prefix == "" {
		prefix = "stride:"
	}
	return &RedisRunStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisRunStore) keyRun(id string) string {
	return s.prefix + "run:" + id
}

func (s *RedisRunStore) keyAll() string {
	return s.prefix + "idx:all"
}

func (s *RedisRunStore) keyName(name string) string {
	return s.prefix + "idx:name:" + name
}

func (s *RedisRunStore) keyKind(kind api.Kind) string {
	return s.prefix + "idx:kind:" + string(kind)
}

func (s *RedisRunStore) keyStatus(status api.Status) string {
	return s.prefix + "idx:status:" + string(status)
}

func encodeRedisPayload(run *api.Run) ([]byte, error) {
	output, results, errStr, err := encodeRunColumns(run)
	if err != nil {
		return nil, err
	}

	payload := redisRunPayload{
		ID:         run.ID,
		Name:       run.Name,
		Kind:       string(run.Kind),
		Status:     string(run.Status),
		Attempts:   run.Attempts,
		Output:     output,
		Results:    results,
		Error:      errStr,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRedisPayload(data []byte) (*api.Run, error) {
	if len(data) == 0 {
		return nil, ErrRunNotFound
	}
	var payload redisRunPayload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&payload); err != nil {
		return nil, err
	}

	outVal, err := decodeValue(payload.Output)
	if err != nil {
		return nil, err
	}
	resultsVal, err := decodeResults(payload.Results)
	if err != nil {
		return nil, err
	}

	run := &api.Run{
		ID:         payload.ID,
		Name:       payload.Name,
		Kind:       api.Kind(payload.Kind),
		Status:     api.Status(payload.Status),
		Attempts:   payload.Attempts,
		Output:     outVal,
		Results:    resultsVal,
		StartedAt:  payload.StartedAt,
		FinishedAt: payload.FinishedAt,
	}
	if payload.Error != "" {
		run.Err = errors.New(payload.Error)
	}

	return run, nil
}

func (s *RedisRunStore) SaveRun(run *api.Run) error {
	ctx := context.Background()

	data, err := encodeRedisPayload(run)
	if err != nil {
		return err
	}

	// Set payload
	if err := s.client.Set(ctx, s.keyRun(run.ID), data, 0).Err(); err != nil {
		return err
	}

	// Update indexes (best-effort; we don't treat index failures as fatal)
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.keyAll(), run.ID)
	pipe.SAdd(ctx, s.keyName(run.Name), run.ID)
	pipe.SAdd(ctx, s.keyKind(run.Kind), run.ID)
	pipe.SAdd(ctx, s.keyStatus(run.Status), run.ID)
	_, _ = pipe.Exec(ctx)

	return nil
}

func (s *RedisRunStore) UpdateRun(run *api.Run) error {
	ctx := context.Background()

	data, err := encodeRedisPayload(run)
	if err != nil {
		return err
	}

	// Overwrite payload
	if err := s.client.Set(ctx, s.keyRun(run.ID), data, 0).Err(); err != nil {
		return err
	}

	// Index updates: we just re-add; some stale index entries may remain if
	// the status changed, but ListRuns filters by payload.
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.keyAll(), run.ID)
	pipe.SAdd(ctx, s.keyName(run.Name), run.ID)
	pipe.SAdd(ctx, s.keyKind(run.Kind), run.ID)
	pipe.SAdd(ctx, s.keyStatus(run.Status), run.ID)
	_, _ = pipe.Exec(ctx)

	return nil
}

func (s *RedisRunStore) GetRun(id string) (*api.Run, error) {
	ctx := context.Background()

	data, err := s.client.Get(ctx, s.keyRun(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return decodeRedisPayload(data)
}

func (s *RedisRunStore) ListRuns(filter RunFilter) ([]*api.Run, error) {
	ctx := context.Background()

	var keys []string
	if filter.Name != "" {
		keys = append(keys, s.keyName(filter.Name))
	}
	if filter.Kind != "" {
		keys = append(keys, s.keyKind(filter.Kind))
	}
	if filter.Status != "" {
		keys = append(keys, s.keyStatus(filter.Status))
	}
	if len(keys) == 0 {
		keys = append(keys, s.keyAll())
	}

	var ids []string
	var err error
	if len(keys) == 1 {
		ids, err = s.client.SMembers(ctx, keys[0]).Result()
	} else {
		ids, err = s.client.SInter(ctx, keys...).Result()
	}

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*api.Run{}, nil
		}
		return nil, err
	}
	if len(ids) == 0 {
		return []*api.Run{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.keyRun(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	var runs []*api.Run
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		run, err := decodeRedisPayload(data)
		if err != nil {
			return nil, err
		}

		// A stale index entry can surface a run whose payload no longer
		// matches the filter; re-check against the payload.
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		runs = append(runs, run)
	}

	return runs, nil
}
