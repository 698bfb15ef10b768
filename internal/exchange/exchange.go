package exchange

import (
	"context"

	"quantflow/internal/model"
)

// 交易所接入层。实盘走OKX永续合约，本地联调走模拟实现

// 保证金模式
const (
	MgnModeIsolated = "isolated"
	MgnModeCross    = "cross"
)

type Exchange interface {
	// 获取最新价格
	GetLastPrice(symbol string) (float64, error)
	// 获取K线，固定1小时周期，按时间升序返回
	GetKlineRecords(symbol string, size int) ([]model.Kline, error)
	// 获取指定币种可用余额
	GetBalance(ctx context.Context, coin string) (float64, error)
	// 获取当前持仓，无持仓返回nil
	GetPosition(symbol string) (*model.PositionInfo, error)
	// 市价开仓，qty单位为币
	OpenPosition(ctx context.Context, symbol string, dir model.Direction, qty float64) (*model.OrderResponse, error)
	// 市价平仓
	ClosePosition(ctx context.Context, symbol string, dir model.Direction, qty float64) (*model.OrderResponse, error)
	// 设置合约杠杆
	SetLeverage(symbol string, leverage int) error
	// 价格/数量修正到交易所合法精度
	RoundPrice(symbol string, price float64) float64
	RoundQuantity(symbol string, qty float64) float64
}
