package engine

// 集中定义的数值截断边界，盈亏、仓位、资金计算共用

const (
	// 单笔盈亏（已实现或浮动）不超过对应名义价值的50%
	maxPnlRatio = 0.5

	// 名义价值边界 USDT
	minNotional = 1000
	maxNotional = 50000

	// 部分平仓后剩余名义价值低于该值时直接全平
	minResidualNotional = 100

	// 仓位倍数边界
	minSizeMultiplier = 0.3
	maxSizeMultiplier = 1.1

	// 资金曲线单点上限 USDT
	maxTotalAssets = 1e6

	// 收益率边界 %
	minReturnRatio = -100
	maxReturnRatio = 500
)

// ClampPnl 把盈亏截断到 ±50% 名义价值以内
func ClampPnl(pnl, notional float64) float64 {
	max := notional * maxPnlRatio
	if pnl > max {
		return max
	}
	if pnl < -max {
		return -max
	}
	return pnl
}

// ClampNotional 把名义价值截断到 [1000, 50000]
func ClampNotional(v float64) float64 {
	if v > maxNotional {
		return maxNotional
	}
	if v < minNotional {
		return minNotional
	}
	return v
}

// ClampMultiplier 把仓位倍数截断到 [0.3, 1.1]
func ClampMultiplier(m float64) float64 {
	if m > maxSizeMultiplier {
		return maxSizeMultiplier
	}
	if m < minSizeMultiplier {
		return minSizeMultiplier
	}
	return m
}

// ClampTotalAssets 把总资产截断到 [0, 1e6]
func ClampTotalAssets(v float64) float64 {
	if v > maxTotalAssets {
		return maxTotalAssets
	}
	if v < 0 {
		return 0
	}
	return v
}

// ClampReturnRatio 把收益率截断到 [-100, 500]
func ClampReturnRatio(v float64) float64 {
	if v > maxReturnRatio {
		return maxReturnRatio
	}
	if v < minReturnRatio {
		return minReturnRatio
	}
	return v
}

// 现金永远不为负
func floorCash(cash float64) float64 {
	if cash < 0 {
		return 0
	}
	return cash
}
