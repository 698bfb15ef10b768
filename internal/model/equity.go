package model

import "time"

// EquitySample 资金曲线上的一个点：现金 + 截断后的浮动盈亏
type EquitySample struct {
	ID          uint      `gorm:"column:id;primary_key" json:"-"`
	Symbol      string    `gorm:"column:symbol" json:"symbol"`
	Timestamp   time.Time `gorm:"column:timestamp" json:"timestamp"`
	TotalAssets float64   `gorm:"column:total_assets" json:"total_assets"`
}

func (EquitySample) TableName() string {
	return "equity_sample"
}

// RunSummary 一次回测/实盘运行的统计摘要
type RunSummary struct {
	ID        uint      `gorm:"column:id;primary_key" json:"-"`
	RunId     string    `gorm:"column:run_id" json:"run_id"`
	Symbol    string    `gorm:"column:symbol" json:"symbol"`
	StartedAt time.Time `gorm:"column:started_at" json:"started_at"`
	EndedAt   time.Time `gorm:"column:ended_at" json:"ended_at"`

	FinalCash       float64 `gorm:"column:final_cash" json:"final_cash"`
	ReturnRatio     float64 `gorm:"column:return_ratio" json:"return_ratio"` // 收益率 %
	TotalTrades     int     `gorm:"column:total_trades" json:"total_trades"`
	WinTrades       int     `gorm:"column:win_trades" json:"win_trades"`
	LossTrades      int     `gorm:"column:loss_trades" json:"loss_trades"`
	WinRate         float64 `gorm:"column:win_rate" json:"win_rate"` // 胜率 %
	ProfitLossRatio float64 `gorm:"column:profit_loss_ratio" json:"profit_loss_ratio"`
}

func (RunSummary) TableName() string {
	return "run_summary"
}
