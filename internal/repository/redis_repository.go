package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/miniapp/internal/domain"
	"github.com/redis/go-redis/v9"
)

// maxTxAttempts bounds how often an optimistic cart update is re-run after
// another writer touched the same key.
const maxTxAttempts = 3

var ErrTxConflict = errors.New("cart was modified concurrently")

type RedisCartRepository struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisCartRepository(client *redis.Client, prefix string) *RedisCartRepository {
	return &RedisCartRepository{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (r *RedisCartRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, r.cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return decodeCart(data)
}

func (r *RedisCartRepository) AddItem(ctx context.Context, userID string, item domain.CartItem) (*domain.Cart, error) {
	key := r.cartKey(userID)
	var cart *domain.Cart

	txf := func(tx *redis.Tx) error {
		now := r.now()
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			cart = domain.NewCart(userID, now)
		case err != nil:
			return fmt.Errorf("redis get failed: %w", err)
		default:
			if cart, err = decodeCart(data); err != nil {
				return err
			}
		}

		cart.AddItem(item, now)
		payload, err := json.Marshal(cart)
		if err != nil {
			return fmt.Errorf("marshal cart failed: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.SAdd(ctx, r.indexKey(), userID)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return cart, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, fmt.Errorf("redis add item failed: %w", err)
	}
	return nil, ErrTxConflict
}

func (r *RedisCartRepository) DeleteCart(ctx context.Context, userID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.cartKey(userID))
		pipe.SRem(ctx, r.indexKey(), userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCartRepository) CountCarts(ctx context.Context) (int, error) {
	n, err := r.client.SCard(ctx, r.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis scard failed: %w", err)
	}
	return int(n), nil
}

func (r *RedisCartRepository) cartKey(userID string) string {
	return fmt.Sprintf("%scart:%s", r.prefix, userID)
}

func (r *RedisCartRepository) indexKey() string {
	return r.prefix + "carts"
}

func decodeCart(data []byte) (*domain.Cart, error) {
	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return &cart, nil
}

type RedisSessionRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisSessionRepository(client *redis.Client, prefix string) *RedisSessionRepository {
	return &RedisSessionRepository{
		client: client,
		prefix: prefix,
	}
}

func (r *RedisSessionRepository) GetSession(ctx context.Context, userID string) (*domain.Session, error) {
	data, err := r.client.Get(ctx, r.sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session failed: %w", err)
	}
	if string(session.GeocodeResult) == "null" {
		session.GeocodeResult = nil
	}
	return &session, nil
}

func (r *RedisSessionRepository) SaveSession(ctx context.Context, session *domain.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.sessionKey(session.UserID), payload, 0)
		pipe.SAdd(ctx, r.indexKey(), session.UserID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) CountSessions(ctx context.Context) (int, error) {
	n, err := r.client.SCard(ctx, r.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis scard failed: %w", err)
	}
	return int(n), nil
}

func (r *RedisSessionRepository) sessionKey(userID string) string {
	return fmt.Sprintf("%ssession:%s", r.prefix, userID)
}

func (r *RedisSessionRepository) indexKey() string {
	return r.prefix + "sessions"
}
