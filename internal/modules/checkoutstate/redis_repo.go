package checkoutstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisMaxRetries = 10

var ErrConcurrentUpdate = errors.New("checkout state changed concurrently, retries exhausted")

type RedisRepo struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRepo(client *redis.Client, ttl time.Duration) *RedisRepo {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisRepo{client: client, ttl: ttl}
}

func (r *RedisRepo) Load(ctx context.Context, sessionID string) (State, error) {
	if sessionID == "" {
		return State{}, ErrInvalidSessionID
	}
	data, err := r.client.Get(ctx, stateKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewState(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("redis get failed: %w", err)
	}
	return decodeState(data)
}

// Update applies fn inside a WATCH/MULTI transaction and retries when another
// writer touched the key in between.
func (r *RedisRepo) Update(ctx context.Context, sessionID string, fn func(*State)) (State, error) {
	if sessionID == "" {
		return State{}, ErrInvalidSessionID
	}
	key := stateKey(sessionID)

	var out State
	txf := func(tx *redis.Tx) error {
		st := NewState()
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("redis get failed: %w", err)
		default:
			if st, err = decodeState(data); err != nil {
				return err
			}
		}

		fn(&st)

		b, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("marshal checkout state failed: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, r.ttl)
			return nil
		})
		if err == nil {
			out = st
		}
		return err
	}

	for i := 0; i < redisMaxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return State{}, err
	}
	return State{}, ErrConcurrentUpdate
}

func (r *RedisRepo) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, stateKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func stateKey(sessionID string) string {
	return fmt.Sprintf("checkout:state:%s", sessionID)
}

func decodeState(data []byte) (State, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("unmarshal checkout state failed: %w", err)
	}
	if st.PaymentMethods == nil {
		st.PaymentMethods = []PaymentMethod{}
	}
	return st, nil
}
