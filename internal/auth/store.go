package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	maxTouchRetries  = 3
)

// Record はサーバー側に保存するセッション情報です。
type Record struct {
	Token    string    `json:"token"`
	Identity Identity  `json:"identity"`
	IssuedAt time.Time `json:"issuedAt"`
	LastSeen time.Time `json:"lastSeen"`
}

// Store はセッションレコードの保存先です。
// Get は存在しない（期限切れを含む）トークンに対して (nil, nil) を返します。
type Store interface {
	Get(ctx context.Context, token string) (*Record, error)
	Save(ctx context.Context, record *Record, ttl time.Duration) error
	Touch(ctx context.Context, token string, seen time.Time) error
	Delete(ctx context.Context, token string) error
}

// ConnectRedis は URL から Redis クライアントを作成し、疎通を確認します。
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// RedisStore はセッションを Redis に JSON で保存します。有効期限は Redis の TTL で管理します。
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Get はセッション情報を取得します。
func (s *RedisStore) Get(ctx context.Context, token string) (*Record, error) {
	if token == "" {
		return nil, nil
	}
	data, err := s.rdb.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Save はセッション情報を ttl 付きで保存します。
func (s *RedisStore) Save(ctx context.Context, record *Record, ttl time.Duration) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	if record.Token == "" {
		return fmt.Errorf("record.Token is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(record.Token), payload, ttl).Err()
}

// Touch は最終アクセス時刻を更新します。残りの TTL はそのまま維持します。
func (s *RedisStore) Touch(ctx context.Context, token string, seen time.Time) error {
	key := sessionKey(token)
	update := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return err
		}
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			return err
		}
		record.LastSeen = seen
		payload, err := json.Marshal(&record)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, payload, redis.SetArgs{KeepTTL: true})
			return nil
		})
		return err
	}

	for i := 0; i < maxTouchRetries; i++ {
		err := s.rdb.Watch(ctx, update, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return redis.TxFailedErr
}

// Delete はセッション情報を削除します。
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, sessionKey(token)).Err()
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}
