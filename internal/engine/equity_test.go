package engine

import (
	"testing"
	"time"

	"quantflow/internal/model"
)

// 空仓时总资产等于现金
func TestEquityTracker_Flat(t *testing.T) {
	l, _ := newTestLedger(1000)
	tr := NewEquityTracker(l)

	s := tr.Sample(100, baseTime)
	if !almostEqual(s.TotalAssets, 1000) {
		t.Errorf("total = %.4f, want 1000", s.TotalAssets)
	}
	if len(tr.Samples()) != 1 {
		t.Errorf("samples = %d, want 1", len(tr.Samples()))
	}
}

// 持仓时叠加浮动盈亏
func TestEquityTracker_Unrealized(t *testing.T) {
	l, _ := newTestLedger(1000)
	l.ForceReplace(model.NewOpenPosition(model.Long, 100, 1000, baseTime), 1000)
	tr := NewEquityTracker(l)

	// 价格105：浮盈 1000*(105/100-1) = 50
	s := tr.Sample(105, baseTime.Add(time.Hour))
	if !almostEqual(s.TotalAssets, 1050) {
		t.Errorf("total = %.4f, want 1050", s.TotalAssets)
	}

	// 价格95：浮亏50
	s = tr.Sample(95, baseTime.Add(2*time.Hour))
	if !almostEqual(s.TotalAssets, 950) {
		t.Errorf("total = %.4f, want 950", s.TotalAssets)
	}
}

// 浮盈按名义价值的±50%截断
func TestEquityTracker_UnrealizedClamped(t *testing.T) {
	l, _ := newTestLedger(1000)
	l.ForceReplace(model.NewOpenPosition(model.Long, 100, 1000, baseTime), 1000)
	tr := NewEquityTracker(l)

	// 价格翻三倍，原始浮盈2000，截断到500
	s := tr.Sample(300, baseTime.Add(time.Hour))
	if !almostEqual(s.TotalAssets, 1500) {
		t.Errorf("total = %.4f, want 1500", s.TotalAssets)
	}

	// 价格归零方向，浮亏截断到-500
	s = tr.Sample(1, baseTime.Add(2*time.Hour))
	if !almostEqual(s.TotalAssets, 500) {
		t.Errorf("total = %.4f, want 500", s.TotalAssets)
	}
}

// 总资产整体截断到 [0, 1e6]
func TestEquityTracker_TotalClamped(t *testing.T) {
	l, _ := newTestLedger(999900)
	l.ForceReplace(model.NewOpenPosition(model.Long, 100, 10000, baseTime), 999900)
	tr := NewEquityTracker(l)

	s := tr.Sample(120, baseTime.Add(time.Hour))
	if !almostEqual(s.TotalAssets, 1e6) {
		t.Errorf("total = %.4f, want 1e6 cap", s.TotalAssets)
	}
}
