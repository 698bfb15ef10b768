package engine

import (
	"context"
	"sync"
	"time"

	"quantflow/internal/model"
	"quantflow/pkg/errors"
	"quantflow/pkg/errors/ecode"
	"quantflow/pkg/logger"
)

// OrderSink 下单通道：回测走模拟立即成交，实盘映射为交易所市价单
// Round* 把价格/数量修正到交易所合法步长，模拟实现原样返回
type OrderSink interface {
	SubmitOpen(ctx context.Context, dir model.Direction, price, notional float64, t time.Time) error
	SubmitClose(ctx context.Context, dir model.Direction, price, notional float64, t time.Time) error
	RoundPrice(price float64) float64
	RoundQuantity(qty float64) float64
}

// Ledger 仓位账本：唯一持有 Position 和 Account，
// 所有状态迁移只通过 Open/Close/PartialClose 进行。
// 每个操作先完成全部校验和外部下单，再改本地状态，失败时状态不变
type Ledger struct {
	symbol      string
	acct        model.Account
	pos         model.Position
	gov         *RiskGovernor
	sink        OrderSink
	maxPosRatio float64

	trades  []model.TradeRecord
	onTrade []func(model.TradeRecord)
	mu      sync.Mutex
}

// NewLedger 创建账本
func NewLedger(symbol string, acct model.Account, gov *RiskGovernor, sink OrderSink, maxPosRatio float64) *Ledger {
	return &Ledger{
		symbol:      symbol,
		acct:        acct,
		gov:         gov,
		sink:        sink,
		maxPosRatio: maxPosRatio,
	}
}

// OnTrade 注册交易流水回调（落库、落盘、推送）
func (l *Ledger) OnTrade(fn func(model.TradeRecord)) {
	l.onTrade = append(l.onTrade, fn)
}

// Open 开仓。signal: 1=做多 -1=做空
// 前置条件：当前无仓位、价格有效。仓位已是目标方向时视为成功的空操作
func (l *Ledger) Open(ctx context.Context, signal int, price float64, t time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if price <= 0 || (signal != 1 && signal != -1) {
		return errors.Newf(ecode.InvalidInput, "invalid open signal=%d price=%.4f", signal, price)
	}

	dir := model.Direction(signal)
	if l.pos.IsOpen() {
		if l.pos.Direction == dir {
			// 已处于期望状态，当作成功（实盘重复下单场景）
			return nil
		}
		return errors.New(ecode.PositionExists)
	}

	price = l.sink.RoundPrice(price)
	notional := ComputeNotional(l.acct, l.gov.State(), l.maxPosRatio)
	if notional <= 0 {
		return errors.Newf(ecode.InvalidInput, "invalid notional %.2f", notional)
	}

	fee := notional * l.acct.FeeRate
	if l.acct.Cash < fee {
		return errors.Newf(ecode.InsufficientFunds, "cash=%.2f fee=%.2f", l.acct.Cash, fee)
	}

	// 先提交订单，失败则本地状态不动，等下一轮再试
	if err := l.sink.SubmitOpen(ctx, dir, price, notional, t); err != nil {
		return errors.Wrap(ecode.CollaboratorFailure, err)
	}

	l.acct.Cash = floorCash(l.acct.Cash - fee)
	l.pos = model.NewOpenPosition(dir, price, notional, t)

	logger.Info("开仓",
		logger.Pair("symbol", l.symbol),
		logger.Pair("dir", dir.String()),
		logger.Pair("price", price),
		logger.Pair("notional", notional),
		logger.Pair("cash", l.acct.Cash),
		logger.Pair("multiplier", l.gov.State().SizeMultiplier))

	l.emit(model.TradeRecord{
		Symbol:          l.symbol,
		Timestamp:       t,
		Kind:            model.TradeOpen,
		Direction:       dir,
		Price:           price,
		Notional:        notional,
		CashAfter:       l.acct.Cash,
		MultiplierAfter: l.gov.State().SizeMultiplier,
	})
	return nil
}

// Close 全部平仓
// 无仓位时视为成功的空操作（交易所已处于目标状态）
func (l *Ledger) Close(ctx context.Context, price float64, reason model.CloseReason, t time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.pos.IsOpen() {
		return nil
	}
	if price <= 0 {
		return errors.Newf(ecode.InvalidInput, "invalid close price %.4f", price)
	}

	price = l.sink.RoundPrice(price)
	dir := l.pos.Direction
	notional := l.pos.Notional

	pnl := ClampPnl(notional*(price/l.pos.EntryPrice-1)*float64(dir), notional)
	fee := notional * l.acct.FeeRate

	if err := l.sink.SubmitClose(ctx, dir, price, notional, t); err != nil {
		return errors.Wrap(ecode.CollaboratorFailure, err)
	}

	l.acct.Cash = floorCash(l.acct.Cash + pnl - fee)
	l.gov.RecordOutcome(pnl)
	l.pos = model.Position{}

	logger.Info("平仓",
		logger.Pair("symbol", l.symbol),
		logger.Pair("dir", dir.String()),
		logger.Pair("price", price),
		logger.Pair("pnl", pnl),
		logger.Pair("cash", l.acct.Cash),
		logger.Pair("reason", reason))

	l.emit(model.TradeRecord{
		Symbol:          l.symbol,
		Timestamp:       t,
		Kind:            model.TradeClose,
		Direction:       dir,
		Price:           price,
		Notional:        notional,
		Pnl:             &pnl,
		Reason:          reason,
		CashAfter:       l.acct.Cash,
		MultiplierAfter: l.gov.State().SizeMultiplier,
	})
	return nil
}

// PartialClose 按比例部分平仓，ratio ∈ (0,1]
// 剩余名义价值低于100时立即按同一价格把尾仓也平掉。
// 尾仓会重新计算盈亏并再收一次手续费，这与历史回测行为保持一致
func (l *Ledger) PartialClose(ctx context.Context, price, ratio float64, reason model.CloseReason, t time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.pos.IsOpen() {
		return errors.New(ecode.NoPosition)
	}
	if price <= 0 || ratio <= 0 || ratio > 1 {
		return errors.Newf(ecode.InvalidInput, "invalid partial close price=%.4f ratio=%.2f", price, ratio)
	}

	price = l.sink.RoundPrice(price)
	dir := l.pos.Direction
	partial := l.pos.Notional * ratio

	pnl := ClampPnl(partial*(price/l.pos.EntryPrice-1)*float64(dir), partial)
	fee := partial * l.acct.FeeRate

	if err := l.sink.SubmitClose(ctx, dir, price, partial, t); err != nil {
		return errors.Wrap(ecode.CollaboratorFailure, err)
	}

	l.acct.Cash = floorCash(l.acct.Cash + pnl - fee)
	l.pos.Notional -= partial

	// 尾仓太小没有继续持有的意义，直接全平
	if l.pos.Notional < minResidualNotional {
		leftover := l.pos.Notional
		if err := l.sink.SubmitClose(ctx, dir, price, leftover, t); err != nil {
			// 尾仓平仓失败只记录，下一轮对账会修正
			logger.Warnf("尾仓平仓失败: %v", err)
		} else {
			leftPnl := ClampPnl(leftover*(price/l.pos.EntryPrice-1)*float64(dir), leftover)
			leftFee := leftover * l.acct.FeeRate
			l.acct.Cash = floorCash(l.acct.Cash + leftPnl - leftFee)
			l.pos = model.Position{}
		}
	}

	l.gov.RecordOutcome(pnl)

	logger.Info("部分平仓",
		logger.Pair("symbol", l.symbol),
		logger.Pair("dir", dir.String()),
		logger.Pair("price", price),
		logger.Pair("ratio", ratio),
		logger.Pair("pnl", pnl),
		logger.Pair("cash", l.acct.Cash),
		logger.Pair("remaining", l.pos.Notional),
		logger.Pair("reason", reason))

	l.emit(model.TradeRecord{
		Symbol:          l.symbol,
		Timestamp:       t,
		Kind:            model.TradePartialClose,
		Direction:       dir,
		Price:           price,
		Notional:        partial,
		Pnl:             &pnl,
		Reason:          reason,
		CashAfter:       l.acct.Cash,
		MultiplierAfter: l.gov.State().SizeMultiplier,
	})
	return nil
}

// UpdateWatermarks 把水位线向当前价延伸，ExitMonitor每步先调用
func (l *Ledger) UpdateWatermarks(price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.pos.IsOpen() {
		return
	}
	if l.pos.Direction == model.Long {
		if price > l.pos.HighWater {
			l.pos.HighWater = price
		}
	} else {
		if price < l.pos.LowWater {
			l.pos.LowWater = price
		}
	}
}

// ForceReplace 用交易所侧的真实状态整体覆盖本地仓位和现金。
// 只在对账发现漂移时调用：先完整读取交易所状态，再一次性替换，不做增量合并
func (l *Ledger) ForceReplace(pos model.Position, cash float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pos = pos
	l.acct.Cash = floorCash(cash)
}

// SetCash 对账时用交易所余额刷新现金
func (l *Ledger) SetCash(cash float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acct.Cash = floorCash(cash)
}

// Position 当前仓位快照
func (l *Ledger) Position() model.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pos
}

// Account 当前账户快照
func (l *Ledger) Account() model.Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acct
}

// ProjectedFee 按当前风控状态预估的一次开仓手续费
func (l *Ledger) ProjectedFee() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return ComputeNotional(l.acct, l.gov.State(), l.maxPosRatio) * l.acct.FeeRate
}

// Trades 全部交易流水（副本）
func (l *Ledger) Trades() []model.TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.TradeRecord, len(l.trades))
	copy(out, l.trades)
	return out
}

func (l *Ledger) Symbol() string { return l.symbol }

func (l *Ledger) emit(rec model.TradeRecord) {
	l.trades = append(l.trades, rec)
	for _, fn := range l.onTrade {
		fn(rec)
	}
}
