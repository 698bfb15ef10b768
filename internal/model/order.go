package model

import "time"

type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// Side 开仓方向对应的下单方向
func (d Direction) Side() OrderSide {
	if d == Short {
		return Sell
	}
	return Buy
}

// CloseSide 平仓方向：多仓卖出、空仓买入
func (d Direction) CloseSide() OrderSide {
	if d == Short {
		return Buy
	}
	return Sell
}

type OrderResponse struct {
	OrderId string
	Status  int
	Message string
}

// PositionInfo 交易所侧上报的仓位，部分字段保持交易所原始字符串格式
// 对账时用 cast 解析
type PositionInfo struct {
	Symbol   string
	Dir      Direction
	Amount   float64 // 持有张数
	AvgPrice float64 // 开仓均价
	MgnMode  string  // 保证金模式
	Lever    string  // 杠杆倍数（交易所返回字符串）
	CTime    string  // 开仓时间戳 ms（交易所返回字符串）
	UplRatio string  // 未实现收益率（交易所返回字符串）
}

type Kline struct {
	Timestamp time.Time `json:"time"`
	Open      float64   `json:"open"`
	Close     float64   `json:"close"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Vol       float64   `json:"vol"`     // 成交量 以币为单位
	VolCcy    float64   `json:"vol_ccy"` // 成交额 以USDT为单位
}
