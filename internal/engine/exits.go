package engine

import (
	"context"
	"math"
	"time"

	"quantflow/internal/model"
	"quantflow/pkg/logger"
)

// TakeProfitLevels 三档止盈阈值，Partial1 < Partial2 < Full
type TakeProfitLevels struct {
	Partial1 float64
	Partial2 float64
	Full     float64
}

// DefaultTakeProfitLevels 固定默认档位，动态档位不可用时回退到这里
func DefaultTakeProfitLevels() TakeProfitLevels {
	return TakeProfitLevels{Partial1: 0.06, Partial2: 0.10, Full: 0.15}
}

// Valid 档位必须为正且严格递增
func (l TakeProfitLevels) Valid() bool {
	return l.Partial1 > 0 && l.Partial1 < l.Partial2 && l.Partial2 < l.Full
}

// ExitMonitor 每根K线/每个tick执行一次出场检查。
// 固定优先级：水位线更新 -> 固定止损 -> 追踪止损 -> 分档止盈，
// 每一步最多触发一个动作
type ExitMonitor struct {
	ledger        *Ledger
	stopLossRatio float64
	trailingRatio float64
}

func NewExitMonitor(ledger *Ledger, stopLossRatio, trailingRatio float64) *ExitMonitor {
	return &ExitMonitor{
		ledger:        ledger,
		stopLossRatio: stopLossRatio,
		trailingRatio: trailingRatio,
	}
}

// Check 执行一轮出场检查，返回是否触发了动作。
// levels 由上游从策略解析而来，解析失败时上游应传入默认档位
func (m *ExitMonitor) Check(ctx context.Context, price float64, t time.Time, levels TakeProfitLevels) (bool, error) {
	pos := m.ledger.Position()
	if !pos.IsOpen() || price <= 0 {
		return false, nil
	}

	m.ledger.UpdateWatermarks(price)
	pos = m.ledger.Position()

	dir := float64(pos.Direction)
	ret := (price/pos.EntryPrice - 1) * dir

	// 固定止损
	if ret < -m.stopLossRatio {
		logger.Warn("触发固定止损",
			logger.Pair("price", price),
			logger.Pair("entry", pos.EntryPrice),
			logger.Pair("lossRatio", ret))
		return true, m.ledger.Close(ctx, price, model.ReasonFixedStopLoss, t)
	}

	// 追踪止损：从入场以来最优价的回撤
	if dd := m.drawdown(pos, price); dd > m.trailingRatio {
		logger.Warn("触发追踪止损",
			logger.Pair("price", price),
			logger.Pair("drawdown", dd))
		return true, m.ledger.Close(ctx, price, model.ReasonTrailingStop, t)
	}

	// 分档止盈，从最高档往下只触发一档
	switch {
	case ret >= levels.Full:
		return true, m.ledger.Close(ctx, price, model.ReasonTakeProfitAll, t)
	case ret >= levels.Partial2:
		return true, m.ledger.PartialClose(ctx, price, 0.5, model.ReasonTakeProfit, t)
	case ret >= levels.Partial1:
		return true, m.ledger.PartialClose(ctx, price, 0.3, model.ReasonTakeProfit, t)
	}
	return false, nil
}

func (m *ExitMonitor) drawdown(pos model.Position, price float64) float64 {
	if pos.Direction == model.Long {
		if pos.HighWater <= 0 {
			return 0
		}
		return (pos.HighWater - price) / pos.HighWater
	}
	if pos.LowWater <= 0 || math.IsInf(pos.LowWater, 1) {
		return 0
	}
	return (price - pos.LowWater) / pos.LowWater
}
