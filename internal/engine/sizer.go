package engine

import "quantflow/internal/model"

// 仓位大小计算

// ComputeNotional 计算新仓位的名义价值
// 基准始终是初始资金而不是当前现金，仓位不随盈利复利放大
func ComputeNotional(acct model.Account, risk model.RiskState, maxPosRatio float64) float64 {
	base := acct.InitialEquity * float64(acct.Leverage) * maxPosRatio
	adjusted := base * risk.SizeMultiplier
	return ClampNotional(adjusted)
}
