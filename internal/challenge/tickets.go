// AngelaMos | 2026
// tickets.go

package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iamisam/codeplay-backend/internal/core"
)

type TicketStore interface {
	Save(ctx context.Context, t *Ticket) error
	Get(ctx context.Context, id string) (*Ticket, error)
}

type redisTicketStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisTicketStore(
	client *redis.Client,
	prefix string,
	ttl time.Duration,
) TicketStore {
	return &redisTicketStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *redisTicketStore) Save(ctx context.Context, t *Ticket) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode ticket: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+t.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save ticket: %w", err)
	}

	return nil
}

func (s *redisTicketStore) Get(ctx context.Context, id string) (*Ticket, error) {
	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get ticket: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket: %w", err)
	}

	var t Ticket
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode ticket: %w", err)
	}

	return &t, nil
}
