package engine

import (
	"sync"
	"time"

	"quantflow/internal/model"
)

// EquityTracker 资金曲线采样器，每步记录一次总资产
type EquityTracker struct {
	ledger  *Ledger
	samples []model.EquitySample
	mu      sync.Mutex
}

func NewEquityTracker(ledger *Ledger) *EquityTracker {
	return &EquityTracker{ledger: ledger}
}

// Sample 计算当前总资产并追加采样。
// 总资产 = 现金 + 浮盈（浮盈按名义价值的±50%截断），整体截断到[0, 1e6]
func (t *EquityTracker) Sample(price float64, ts time.Time) model.EquitySample {
	acct := t.ledger.Account()
	pos := t.ledger.Position()

	total := acct.Cash
	if pos.IsOpen() && price > 0 {
		unrealized := pos.Notional * (price/pos.EntryPrice - 1) * float64(pos.Direction)
		total += ClampPnl(unrealized, pos.Notional)
	}
	total = ClampTotalAssets(total)

	s := model.EquitySample{
		Symbol:      t.ledger.Symbol(),
		Timestamp:   ts,
		TotalAssets: total,
	}

	t.mu.Lock()
	t.samples = append(t.samples, s)
	t.mu.Unlock()
	return s
}

// Samples 全部采样（副本）
func (t *EquityTracker) Samples() []model.EquitySample {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.EquitySample, len(t.samples))
	copy(out, t.samples)
	return out
}
