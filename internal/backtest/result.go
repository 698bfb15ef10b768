package backtest

import (
	"math"
	"time"

	"quantflow/internal/engine"
	"quantflow/internal/model"
)

// Result 一次回测的完整产出
type Result struct {
	Summary model.RunSummary
	Trades  []model.TradeRecord
	Equity  []model.EquitySample
}

// buildResult 统计交易摘要
// 总交易次数只统计有明确盈亏方向的平仓（盈亏为0的不计入胜负）
func buildResult(symbol string, initialCash, finalCash float64, trades []model.TradeRecord, equity []model.EquitySample, started, ended time.Time) *Result {
	var winCount, lossCount int
	var winSum, lossSum float64

	for _, rec := range trades {
		if !rec.HasPnl() {
			continue
		}
		pnl := *rec.Pnl
		if pnl > 0 {
			winCount++
			winSum += pnl
		} else if pnl < 0 {
			lossCount++
			lossSum += pnl
		}
	}

	total := winCount + lossCount
	var winRate, plRatio float64
	if total > 0 {
		winRate = float64(winCount) / float64(total) * 100
	}
	if winCount > 0 && lossCount > 0 {
		avgWin := winSum / float64(winCount)
		avgLoss := lossSum / float64(lossCount)
		if avgLoss != 0 {
			plRatio = math.Abs(avgWin / avgLoss)
		}
	}

	returnRatio := engine.ClampReturnRatio((finalCash/initialCash - 1) * 100)

	return &Result{
		Summary: model.RunSummary{
			Symbol:          symbol,
			StartedAt:       started,
			EndedAt:         ended,
			FinalCash:       finalCash,
			ReturnRatio:     returnRatio,
			TotalTrades:     total,
			WinTrades:       winCount,
			LossTrades:      lossCount,
			WinRate:         winRate,
			ProfitLossRatio: plRatio,
		},
		Trades: trades,
		Equity: equity,
	}
}
