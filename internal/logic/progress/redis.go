package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisProgressStore 管理 Redis 中的交易状态记录，供运维按签名查询结局
type RedisProgressStore struct {
	rdb redis.UniversalClient
}

const txStatusPrefix = "tx:status"

// 每类状态的 TTL（可调）
const (
	pendingTTL  = 10 * time.Minute // 超过截止时间后 pending 记录没有意义
	finalTTL    = 7 * 24 * time.Hour
	timedOutTTL = 3 * 24 * time.Hour
)

func NewRedisProgressStore(rdb redis.UniversalClient) *RedisProgressStore {
	return &RedisProgressStore{rdb: rdb}
}

func (r *RedisProgressStore) getKey(signature string) string {
	return fmt.Sprintf("%s:%s", txStatusPrefix, signature)
}

func (r *RedisProgressStore) getTTL(status TxStatus) time.Duration {
	switch status {
	case TxPending:
		return pendingTTL
	case TxTimedOut:
		return timedOutTTL
	default:
		return finalTTL
	}
}

// GetTxRecord 不存在时返回 Status == TxUnknown 的空记录
func (r *RedisProgressStore) GetTxRecord(ctx context.Context, signature string) (TxRecord, error) {
	val, err := r.rdb.Get(ctx, r.getKey(signature)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return TxRecord{}, nil
	case err != nil:
		return TxRecord{}, fmt.Errorf("redis get error: %w", err)
	}

	var record TxRecord
	if err := json.Unmarshal(val, &record); err != nil {
		return TxRecord{}, nil // 容错处理
	}
	return record, nil
}

// MarkTxStatus 写入交易状态。终态不会被 pending 覆盖。
func (r *RedisProgressStore) MarkTxStatus(ctx context.Context, signature string, record TxRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	key := r.getKey(signature)
	ttl := r.getTTL(record.Status)

	if record.Status == TxPending {
		// 只在不存在时写入
		return r.rdb.SetNX(ctx, key, data, ttl).Err()
	}
	return r.rdb.Set(ctx, key, data, ttl).Err()
}
