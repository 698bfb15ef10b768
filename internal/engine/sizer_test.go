package engine

import (
	"testing"

	"quantflow/internal/model"
)

// 名义价值 = 初始资金 × 杠杆 × 仓位比例 × 风控倍数
// 1000 × 2 × 0.7 × 1.0 = 1400
func TestComputeNotional(t *testing.T) {
	acct := model.Account{InitialEquity: 1000, Leverage: 2}

	got := ComputeNotional(acct, model.RiskState{SizeMultiplier: 1.0}, 0.7)
	if !almostEqual(got, 1400) {
		t.Errorf("notional = %.4f, want 1400", got)
	}
}

func TestComputeNotional_MultiplierShrinks(t *testing.T) {
	acct := model.Account{InitialEquity: 10000, Leverage: 2}

	full := ComputeNotional(acct, model.RiskState{SizeMultiplier: 1.0}, 0.7)
	shrunk := ComputeNotional(acct, model.RiskState{SizeMultiplier: 0.7}, 0.7)
	if !almostEqual(full, 14000) || !almostEqual(shrunk, 9800) {
		t.Errorf("full=%.2f shrunk=%.2f", full, shrunk)
	}
}

// 上下边界截断 [1000, 50000]
func TestComputeNotional_Clamped(t *testing.T) {
	small := model.Account{InitialEquity: 500, Leverage: 1}
	if got := ComputeNotional(small, model.RiskState{SizeMultiplier: 0.3}, 0.7); !almostEqual(got, 1000) {
		t.Errorf("small notional = %.2f, want 1000 floor", got)
	}

	big := model.Account{InitialEquity: 1000000, Leverage: 10}
	if got := ComputeNotional(big, model.RiskState{SizeMultiplier: 1.1}, 0.7); !almostEqual(got, 50000) {
		t.Errorf("big notional = %.2f, want 50000 cap", got)
	}
}
