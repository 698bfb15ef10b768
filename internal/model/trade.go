package model

import "time"

// 交易流水与资金曲线记录

type TradeKind string

const (
	TradeOpen         TradeKind = "open"
	TradeClose        TradeKind = "close"
	TradePartialClose TradeKind = "partial_close"
)

// CloseReason 平仓原因
type CloseReason string

const (
	ReasonSignal        CloseReason = "signal_close"    // 信号平仓
	ReasonSignalReverse CloseReason = "signal_reverse"  // 信号反转平仓
	ReasonFixedStopLoss CloseReason = "fixed_stop_loss" // 固定止损
	ReasonTrailingStop  CloseReason = "trailing_stop"   // 追踪止损
	ReasonTakeProfit    CloseReason = "take_profit"     // 部分止盈
	ReasonTakeProfitAll CloseReason = "take_profit_all" // 完全止盈
	ReasonEndOfRun      CloseReason = "end_of_run"      // 回测结束平仓
	ReasonStopRequested CloseReason = "stop_requested"  // 停机强制平仓
	ReasonReconcile     CloseReason = "reconcile"       // 对账回写
)

// TradeRecord 一笔交易的不可变流水，只追加不修改
type TradeRecord struct {
	ID        uint      `gorm:"column:id;primary_key" json:"-"`
	RecordId  string    `gorm:"column:record_id" json:"record_id"`
	Symbol    string    `gorm:"column:symbol" json:"symbol"`
	Timestamp time.Time `gorm:"column:timestamp" json:"timestamp"`

	Kind      TradeKind   `gorm:"column:kind" json:"kind"`
	Direction Direction   `gorm:"column:direction" json:"direction"`
	Price     float64     `gorm:"column:price" json:"price"`
	Notional  float64     `gorm:"column:notional" json:"notional"` // 本次操作涉及的名义价值
	Pnl       *float64    `gorm:"column:pnl" json:"pnl,omitempty"` // 开仓流水无盈亏
	Reason    CloseReason `gorm:"column:reason" json:"reason,omitempty"`

	CashAfter       float64 `gorm:"column:cash_after" json:"cash_after"`
	MultiplierAfter float64 `gorm:"column:multiplier_after" json:"multiplier_after"`
}

func (TradeRecord) TableName() string {
	return "trade_record"
}

// HasPnl 是否是带盈亏的流水（平仓或部分平仓）
func (r TradeRecord) HasPnl() bool { return r.Pnl != nil }
