package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/escalopa/quran-recite-checker/internal/domain"
)

const (
	stateKeyPrefix = "fsm:state:"
	dataKeyPrefix  = "fsm:data:"
	defaultTTL     = 24 * time.Hour
)

// FSM keeps each user's conversation state and range selection
type FSM struct {
	client redis.Cmdable
}

var _ domain.FSMPort = (*FSM)(nil)

func NewFSM(client redis.Cmdable) *FSM {
	return &FSM{client: client}
}

// SetState sets the current state for a user
func (f *FSM) SetState(ctx context.Context, userID string, state domain.State) error {
	if err := f.client.Set(ctx, stateKey(userID), string(state), defaultTTL).Err(); err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	return nil
}

// GetState gets the current state for a user. Unknown users are at StateStart.
func (f *FSM) GetState(ctx context.Context, userID string) (domain.State, error) {
	val, err := f.client.Get(ctx, stateKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.StateStart, nil
	}
	if err != nil {
		return "", fmt.Errorf("get state: %w", err)
	}
	return domain.State(val), nil
}

func (f *FSM) DeleteState(ctx context.Context, userID string) error {
	if err := f.client.Del(ctx, stateKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}

// SetData sets temporary data for a user's current session
func (f *FSM) SetData(ctx context.Context, userID, key, value string) error {
	if err := f.client.Set(ctx, dataKey(userID, key), value, defaultTTL).Err(); err != nil {
		return fmt.Errorf("set data: %w", err)
	}
	return nil
}

// GetData returns domain.ErrNotFound when key was never set or expired
func (f *FSM) GetData(ctx context.Context, userID, key string) (string, error) {
	val, err := f.client.Get(ctx, dataKey(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("get data %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get data: %w", err)
	}
	return val, nil
}

func (f *FSM) DeleteData(ctx context.Context, userID, key string) error {
	if err := f.client.Del(ctx, dataKey(userID, key)).Err(); err != nil {
		return fmt.Errorf("delete data: %w", err)
	}
	return nil
}

func stateKey(userID string) string {
	return stateKeyPrefix + userID
}

func dataKey(userID, key string) string {
	return fmt.Sprintf("%s%s:%s", dataKeyPrefix, userID, key)
}
