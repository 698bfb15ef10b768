package live

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"quantflow/conf"
	"quantflow/internal/engine"
	"quantflow/internal/exchange"
	"quantflow/internal/model"
	"quantflow/internal/strategy"
	"quantflow/pkg/logger"
	"quantflow/pkg/utils"
)

// 实盘交易器：按固定间隔轮询交易所，复用回测同一套账本和出场规则。
// 交易所调用全部带重试，引擎内部失败只记录日志不停机

// 信号评估所需的最少历史K线
const minSignalHistory = 20

// 交易所调用重试参数
const (
	apiRetries    = 3
	apiRetryDelay = time.Second
)

type Trader struct {
	cfg   conf.TradingConfig
	ex    exchange.Exchange
	strat strategy.Strategy
	store *StateStore // 可为nil，此时风控状态不持久化

	ledger   *engine.Ledger
	gov      *engine.RiskGovernor
	exits    *engine.ExitMonitor
	equity   *engine.EquityTracker
	tpLevels engine.TakeProfitLevels

	mu           sync.Mutex
	lastSignalAt time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewTrader(cfg conf.TradingConfig, ex exchange.Exchange, strat strategy.Strategy, store *StateStore) *Trader {
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
	sink := exchange.NewLiveSink(ex, cfg.Symbol)
	ledger := engine.NewLedger(cfg.Symbol, acct, gov, sink, cfg.MaxPosRatio)

	return &Trader{
		cfg:    cfg,
		ex:     ex,
		strat:  strat,
		store:  store,
		ledger: ledger,
		gov:    gov,
		exits:  engine.NewExitMonitor(ledger, cfg.StopLossRatio, cfg.TrailingRatio),
		equity: engine.NewEquityTracker(ledger),
		tpLevels: engine.TakeProfitLevels{
			Partial1: cfg.TPPartial1,
			Partial2: cfg.TPPartial2,
			Full:     cfg.TPFull,
		},
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// OnTrade 注册交易流水回调
func (t *Trader) OnTrade(fn func(model.TradeRecord)) {
	t.ledger.OnTrade(fn)
}

func (t *Trader) Ledger() *engine.Ledger        { return t.ledger }
func (t *Trader) Equity() *engine.EquityTracker { return t.equity }
func (t *Trader) RiskState() model.RiskState    { return t.gov.State() }

// 监控接口用的状态快照
func (t *Trader) Symbol() string                      { return t.ledger.Symbol() }
func (t *Trader) Position() model.Position            { return t.ledger.Position() }
func (t *Trader) Account() model.Account              { return t.ledger.Account() }
func (t *Trader) Trades() []model.TradeRecord         { return t.ledger.Trades() }
func (t *Trader) EquitySamples() []model.EquitySample { return t.equity.Samples() }

// Start 完成开机流程后启动轮询循环：
// 设置杠杆 -> 恢复风控状态 -> 刷新余额 -> 仓位对账
func (t *Trader) Start(ctx context.Context) error {
	if err := utils.Retry(apiRetries, apiRetryDelay, true, func() error {
		return t.ex.SetLeverage(t.cfg.Symbol, t.cfg.Leverage)
	}); err != nil {
		return err
	}

	if t.store != nil {
		snap, err := t.store.Load(ctx)
		if err != nil {
			logger.Warn("恢复风控状态失败", logger.Pair("err", err))
		} else if snap != nil {
			t.gov.Restore(*snap)
			logger.Info("风控状态已恢复",
				logger.Pair("multiplier", snap.State.SizeMultiplier),
				logger.Pair("dailyEntries", snap.DailyEntries))
		}
	}

	t.refreshBalance(ctx)

	if err := t.Reconcile(ctx); err != nil {
		logger.Error("开机对账失败", logger.Pair("err", err))
	}

	go t.run(ctx)
	logger.Info("实盘交易器已启动",
		logger.Pair("symbol", t.cfg.Symbol),
		logger.Pair("pollInterval", t.cfg.PollInterval.String()))
	return nil
}

func (t *Trader) run(ctx context.Context) {
	defer close(t.doneCh)

	poll := time.NewTicker(t.cfg.PollInterval)
	defer poll.Stop()
	reconcile := time.NewTicker(t.cfg.ReconcileInterval)
	defer reconcile.Stop()

	for {
		select {
		case <-poll.C:
			if err := t.step(ctx); err != nil {
				logger.Error("轮询异常", logger.Pair("err", err))
			}
			t.persistState(ctx)
		case <-reconcile.C:
			if err := t.Reconcile(ctx); err != nil {
				logger.Error("仓位对账失败", logger.Pair("err", err))
			}
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		}
	}
}

// step 单次轮询：拉行情 -> 出场检查 -> 信号处理 -> 资金采样
func (t *Trader) step(ctx context.Context) error {
	var klines []model.Kline
	if err := utils.Retry(apiRetries, apiRetryDelay, true, func() error {
		var err error
		klines, err = t.ex.GetKlineRecords(t.cfg.Symbol, t.cfg.KlineSize)
		return err
	}); err != nil {
		return err
	}
	if len(klines) == 0 {
		return nil
	}

	var price float64
	if err := utils.Retry(apiRetries, apiRetryDelay, true, func() error {
		var err error
		price, err = t.ex.GetLastPrice(t.cfg.Symbol)
		return err
	}); err != nil {
		return err
	}
	if price <= 0 {
		logger.Warn("忽略无效最新价", logger.Pair("price", price))
		return nil
	}
	now := time.Now().UTC()

	levels := t.resolveLevels(klines)
	fired, err := t.exits.Check(ctx, price, now, levels)
	if err != nil {
		logger.Error("出场检查失败", logger.Pair("err", err))
	}

	// 同一轮里已经出场的话不再处理信号
	if !fired && len(klines) >= minSignalHistory {
		t.handleSignal(ctx, t.strat.GetSignal(klines), price, now)
	}

	t.equity.Sample(price, now)
	return nil
}

// handleSignal 处理策略信号：持仓中遇到反向信号先平仓；无仓位时过闸门开仓。
// 信号动作之间有冷却时间，防止行情抖动导致频繁开平
func (t *Trader) handleSignal(ctx context.Context, signal int, price float64, now time.Time) {
	if signal == 0 {
		return
	}

	t.mu.Lock()
	cooled := t.lastSignalAt.IsZero() || now.Sub(t.lastSignalAt) >= t.cfg.SignalCooldown
	t.mu.Unlock()
	if !cooled {
		return
	}

	pos := t.ledger.Position()
	if pos.IsOpen() {
		if int(pos.Direction) != signal {
			if err := t.ledger.Close(ctx, price, model.ReasonSignalReverse, now); err != nil {
				logger.Error("反向信号平仓失败", logger.Pair("err", err))
				return
			}
			t.markSignal(now)
			t.refreshBalance(ctx)
		}
		return
	}

	if !t.gov.CanEnter(now, t.ledger.ProjectedFee(), t.ledger.Account().Cash) {
		return
	}
	if err := t.ledger.Open(ctx, signal, price, now); err != nil {
		logger.Warn("开仓失败", logger.Pair("err", err))
		return
	}
	t.gov.RecordEntry(now)
	t.markSignal(now)
}

func (t *Trader) markSignal(now time.Time) {
	t.mu.Lock()
	t.lastSignalAt = now
	t.mu.Unlock()
}

// Stop 停机流程：停掉轮询循环，强制平掉剩余仓位，落盘风控状态。
// 所有失败汇总返回，不因单步失败跳过后续清理
func (t *Trader) Stop(ctx context.Context) error {
	t.stopOnce.Do(func() { close(t.stopCh) })
	select {
	case <-t.doneCh:
	case <-ctx.Done():
	}

	var errs error
	if t.ledger.Position().IsOpen() {
		var price float64
		err := utils.Retry(apiRetries, apiRetryDelay, true, func() error {
			var e error
			price, e = t.ex.GetLastPrice(t.cfg.Symbol)
			return e
		})
		if err != nil {
			errs = multierr.Append(errs, err)
		} else if err := t.ledger.Close(ctx, price, model.ReasonStopRequested, time.Now().UTC()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if t.store != nil {
		if err := t.store.Save(ctx, t.gov.Snapshot()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	logger.Info("实盘交易器已停止", logger.Pair("symbol", t.cfg.Symbol))
	return errs
}

// 空仓时用交易所可用余额校准账本现金。
// 持仓中保证金被占用，余额不再等于账本现金，不能校准
func (t *Trader) refreshBalance(ctx context.Context) {
	if t.ledger.Position().IsOpen() {
		return
	}
	coin := quoteCoin(t.cfg.Symbol)
	var balance float64
	if err := utils.Retry(apiRetries, apiRetryDelay, true, func() error {
		var err error
		balance, err = t.ex.GetBalance(ctx, coin)
		return err
	}); err != nil {
		logger.Warn("查询余额失败", logger.Pair("coin", coin), logger.Pair("err", err))
		return
	}
	if balance > 0 {
		t.ledger.SetCash(balance)
	}
}

func (t *Trader) persistState(ctx context.Context) {
	if t.store == nil {
		return
	}
	if err := t.store.Save(ctx, t.gov.Snapshot()); err != nil {
		logger.Warn("风控状态落盘失败", logger.Pair("err", err))
	}
}

func (t *Trader) resolveLevels(klines []model.Kline) engine.TakeProfitLevels {
	cond, strength := 1, 2
	if ma, ok := t.strat.(strategy.MarketAnalyzer); ok {
		cond = ma.MarketCondition(klines)
		strength = ma.TrendStrength(klines)
	}
	return strategy.ResolveTakeProfitLevels(t.strat, klines, cond, strength, t.tpLevels)
}

// quoteCoin 从交易对中取计价币种，ETH/USDT -> USDT
func quoteCoin(symbol string) string {
	if i := strings.Index(symbol, "/"); i >= 0 && i+1 < len(symbol) {
		return symbol[i+1:]
	}
	return "USDT"
}
