package model

import (
	"encoding/json"
	"math"
	"time"
)

// Direction 仓位方向：1=多，-1=空，0=无仓
type Direction int

const (
	Flat  Direction = 0
	Long  Direction = 1
	Short Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "flat"
	}
}

// Position 当前仓位。零值即无仓状态
// 仅允许通过 engine.Ledger 的操作修改
type Position struct {
	Direction  Direction `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	Notional   float64   `json:"notional"` // 开仓时的名义价值 USDT
	OpenedAt   time.Time `json:"opened_at"`
	HighWater  float64   `json:"high_water"` // 开仓以来最高价（多仓追踪止损用）
	LowWater   float64   `json:"low_water"`  // 开仓以来最低价（空仓追踪止损用）
}

func (p Position) IsOpen() bool { return p.Direction != Flat }

// MarshalJSON 序列化时把未使用侧的无穷大水位线归零。
// JSON不支持Inf，多仓的LowWater会让整个监控响应和推送序列化失败
func (p Position) MarshalJSON() ([]byte, error) {
	type alias Position
	a := alias(p)
	if math.IsInf(a.LowWater, 0) || math.IsNaN(a.LowWater) {
		a.LowWater = 0
	}
	if math.IsInf(a.HighWater, 0) || math.IsNaN(a.HighWater) {
		a.HighWater = 0
	}
	return json.Marshal(a)
}

// NewOpenPosition 按方向初始化水位线：顺势侧取开仓价，另一侧取极值
func NewOpenPosition(dir Direction, price, notional float64, t time.Time) Position {
	p := Position{
		Direction:  dir,
		EntryPrice: price,
		Notional:   notional,
		OpenedAt:   t,
	}
	if dir == Long {
		p.HighWater = price
		p.LowWater = math.Inf(1)
	} else {
		p.LowWater = price
		p.HighWater = 0
	}
	return p
}

// Account 账户资金状态。Cash是已实现价值的唯一来源
type Account struct {
	Cash          float64 `json:"cash"`
	Leverage      int     `json:"leverage"`
	FeeRate       float64 `json:"fee_rate"`
	InitialEquity float64 `json:"initial_equity"`
}

// RiskState 连续亏损驱动的仓位倍数状态
type RiskState struct {
	ConsecutiveLosses int     `json:"consecutive_losses"`
	SizeMultiplier    float64 `json:"size_multiplier"`
}
