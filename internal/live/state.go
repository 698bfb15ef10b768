package live

import (
	"context"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"quantflow/internal/consts"
	"quantflow/internal/engine"
)

// 风控状态持久化。进程重启后恢复连亏计数、仓位倍率和当日开仓次数，
// 避免重启绕过频控

type StateStore struct {
	rdb *redis.Client
	key string
}

func NewStateStore(rdb *redis.Client, symbol string) *StateStore {
	return &StateStore{rdb: rdb, key: consts.RiskStatePrefix + symbol}
}

func (s *StateStore) Save(ctx context.Context, snap engine.GovernorSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key, data, consts.RedisExrDefault).Err()
}

// Load 读取风控快照，没有历史状态时返回 nil
func (s *StateStore) Load(ctx context.Context) (*engine.GovernorSnapshot, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap engine.GovernorSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
