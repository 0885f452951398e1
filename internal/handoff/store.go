// Package handoff carries the step-1 result across the step boundary. The
// handoff is one serializable value, written at the end of step 1 and read at
// the start of step 2, with tab-lifetime semantics: it expires, and losing it
// mid-flow is a hard failure for the attempt, never a recoverable crash.
package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"exhibitforms/pkg/domain"
)

// FlowHandoff is everything step 2 needs from step 1: the raw draft (for
// scaffolding training state), the backend-bound payload, and the session's
// folder name. It crosses the boundary by value, never by reference.
type FlowHandoff struct {
	Draft       domain.ExhibitionDraft `json:"draft"`
	RoomWaiting domain.RoomWaiting     `json:"roomWaiting"`
	FolderName  string                 `json:"folderName"`
}

// Store persists handoffs keyed by flow id. Get reports absence (expired or
// never written) distinctly from transport errors.
type Store interface {
	Put(ctx context.Context, flowID string, h FlowHandoff) error
	Get(ctx context.Context, flowID string) (FlowHandoff, bool, error)
	Delete(ctx context.Context, flowID string) error
}

// RedisStore keeps handoffs in Redis with TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed handoff store.
func NewRedisStore(addr, password string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		ttl:    ttl,
	}
}

func handoffKey(flowID string) string {
	return "handoff:" + flowID
}

// Put serializes the handoff under the flow key with TTL.
func (s *RedisStore) Put(ctx context.Context, flowID string, h FlowHandoff) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode handoff: %w", err)
	}
	if err := s.client.Set(ctx, handoffKey(flowID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store handoff: %w", err)
	}
	return nil
}

// Get loads the handoff for the flow.
func (s *RedisStore) Get(ctx context.Context, flowID string) (FlowHandoff, bool, error) {
	data, err := s.client.Get(ctx, handoffKey(flowID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return FlowHandoff{}, false, nil
	}
	if err != nil {
		return FlowHandoff{}, false, fmt.Errorf("load handoff: %w", err)
	}
	var h FlowHandoff
	if err := json.Unmarshal(data, &h); err != nil {
		return FlowHandoff{}, false, fmt.Errorf("decode handoff: %w", err)
	}
	return h, true, nil
}

// Delete removes the handoff once step 2 succeeds.
func (s *RedisStore) Delete(ctx context.Context, flowID string) error {
	if err := s.client.Del(ctx, handoffKey(flowID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete handoff: %w", err)
	}
	return nil
}

// MemoryStore is an in-process handoff store for tests and single-node runs.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

func (s *MemoryStore) Put(_ context.Context, flowID string, h FlowHandoff) error {
	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[flowID] = data
	return nil
}

func (s *MemoryStore) Get(_ context.Context, flowID string) (FlowHandoff, bool, error) {
	s.mu.Lock()
	data, ok := s.data[flowID]
	s.mu.Unlock()
	if !ok {
		return FlowHandoff{}, false, nil
	}
	var h FlowHandoff
	if err := json.Unmarshal(data, &h); err != nil {
		return FlowHandoff{}, false, err
	}
	return h, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, flowID)
	return nil
}
