package backtest

import (
	"context"
	"time"

	"quantflow/conf"
	"quantflow/internal/engine"
	"quantflow/internal/model"
	"quantflow/internal/strategy"
	"quantflow/pkg/errors"
	"quantflow/pkg/errors/ecode"
	"quantflow/pkg/logger"
)

// 回测驱动：逐根K线重放，出场检查 -> 信号评估 -> 频控闸门 -> 开仓 -> 资金采样
// 引擎内部的任何失败只记录日志，不中断重放

// 信号评估所需的最少历史K线
const minSignalHistory = 20

// replaySink 回测下单通道，立即成交
type replaySink struct{}

func (replaySink) SubmitOpen(ctx context.Context, dir model.Direction, price, notional float64, t time.Time) error {
	return nil
}

func (replaySink) SubmitClose(ctx context.Context, dir model.Direction, price, notional float64, t time.Time) error {
	return nil
}

func (replaySink) RoundPrice(price float64) float64  { return price }
func (replaySink) RoundQuantity(qty float64) float64 { return qty }

type Driver struct {
	cfg      conf.TradingConfig
	strat    strategy.Strategy
	ledger   *engine.Ledger
	gov      *engine.RiskGovernor
	exits    *engine.ExitMonitor
	equity   *engine.EquityTracker
	tpLevels engine.TakeProfitLevels
}

func NewDriver(cfg conf.TradingConfig, strat strategy.Strategy) *Driver {
	gov := engine.NewRiskGovernor(engine.RiskGovernorConfig{
		MinTradeInterval: cfg.MinInterval,
		MaxDailyTrades:   cfg.MaxDailyTrades,
	})
	acct := model.Account{
		Cash:          cfg.InitialEquity,
		Leverage:      cfg.Leverage,
		FeeRate:       cfg.FeeRate,
		InitialEquity: cfg.InitialEquity,
	}
	ledger := engine.NewLedger(cfg.Symbol, acct, gov, replaySink{}, cfg.MaxPosRatio)

	return &Driver{
		cfg:    cfg,
		strat:  strat,
		ledger: ledger,
		gov:    gov,
		exits:  engine.NewExitMonitor(ledger, cfg.StopLossRatio, cfg.TrailingRatio),
		equity: engine.NewEquityTracker(ledger),
		tpLevels: engine.TakeProfitLevels{
			Partial1: cfg.TPPartial1,
			Partial2: cfg.TPPartial2,
			Full:     cfg.TPFull,
		},
	}
}

// OnTrade 注册交易流水回调
func (d *Driver) OnTrade(fn func(model.TradeRecord)) {
	d.ledger.OnTrade(fn)
}

// Run 重放K线序列，返回完整回测结果
func (d *Driver) Run(ctx context.Context, klines []model.Kline) (*Result, error) {
	if len(klines) < 50 {
		return nil, errors.Newf(ecode.InvalidInput, "insufficient klines: %d", len(klines))
	}

	logger.Infof("开始回测 %s，共 %d 根K线", d.cfg.Symbol, len(klines))

	for i := range klines {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		bar := klines[i]
		price := bar.Close
		if price <= 0 {
			logger.Warnf("跳过无效价格数据: %s", bar.Timestamp)
			continue
		}
		window := klines[:i+1]

		// 出场检查
		levels := d.resolveLevels(window)
		if _, err := d.exits.Check(ctx, price, bar.Timestamp, levels); err != nil {
			logger.Errorf("出场检查失败: %v", err)
		}

		// 信号评估与开仓
		if len(window) >= minSignalHistory && !d.ledger.Position().IsOpen() {
			if signal := d.strat.GetSignal(window); signal != 0 {
				d.tryOpen(ctx, signal, price, bar.Timestamp)
			}
		}

		// 资金曲线采样
		d.equity.Sample(price, bar.Timestamp)
	}

	// 重放结束，强制平掉剩余仓位
	lastBar := klines[len(klines)-1]
	if d.ledger.Position().IsOpen() && lastBar.Close > 0 {
		if err := d.ledger.Close(ctx, lastBar.Close, model.ReasonEndOfRun, lastBar.Timestamp); err != nil {
			logger.Errorf("结束平仓失败: %v", err)
		}
	}

	result := buildResult(
		d.cfg.Symbol,
		d.cfg.InitialEquity,
		d.ledger.Account().Cash,
		d.ledger.Trades(),
		d.equity.Samples(),
		klines[0].Timestamp,
		lastBar.Timestamp,
	)
	logger.Infof("回测完成: finalCash=%.2f return=%.2f%% trades=%d",
		result.Summary.FinalCash, result.Summary.ReturnRatio, result.Summary.TotalTrades)
	return result, nil
}

func (d *Driver) tryOpen(ctx context.Context, signal int, price float64, t time.Time) {
	if !d.gov.CanEnter(t, d.ledger.ProjectedFee(), d.ledger.Account().Cash) {
		return
	}
	if err := d.ledger.Open(ctx, signal, price, t); err != nil {
		logger.Warnf("开仓失败: %v", err)
		return
	}
	d.gov.RecordEntry(t)
}

// 解析止盈档位：策略具备市场分析能力时用动态档位，否则用配置档位
func (d *Driver) resolveLevels(window []model.Kline) engine.TakeProfitLevels {
	cond, strength := 1, 2
	if ma, ok := d.strat.(strategy.MarketAnalyzer); ok {
		cond = ma.MarketCondition(window)
		strength = ma.TrendStrength(window)
	}
	return strategy.ResolveTakeProfitLevels(d.strat, window, cond, strength, d.tpLevels)
}
