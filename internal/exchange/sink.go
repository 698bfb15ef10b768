package exchange

import (
	"context"
	"fmt"
	"time"

	"quantflow/internal/model"
)

// LiveSink 把账本的开平仓操作映射为交易所市价单。
// 名义价值按当前价折算成币数量，并先修正到交易所合法精度
type LiveSink struct {
	ex     Exchange
	symbol string
}

func NewLiveSink(ex Exchange, symbol string) *LiveSink {
	return &LiveSink{ex: ex, symbol: symbol}
}

func (s *LiveSink) SubmitOpen(ctx context.Context, dir model.Direction, price, notional float64, t time.Time) error {
	qty, err := s.toQuantity(price, notional)
	if err != nil {
		return err
	}
	_, err = s.ex.OpenPosition(ctx, s.symbol, dir, qty)
	return err
}

func (s *LiveSink) SubmitClose(ctx context.Context, dir model.Direction, price, notional float64, t time.Time) error {
	qty, err := s.toQuantity(price, notional)
	if err != nil {
		return err
	}
	_, err = s.ex.ClosePosition(ctx, s.symbol, dir, qty)
	return err
}

func (s *LiveSink) RoundPrice(price float64) float64 {
	return s.ex.RoundPrice(s.symbol, price)
}

func (s *LiveSink) RoundQuantity(qty float64) float64 {
	return s.ex.RoundQuantity(s.symbol, qty)
}

func (s *LiveSink) toQuantity(price, notional float64) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("invalid price %.4f", price)
	}
	qty := s.ex.RoundQuantity(s.symbol, notional/price)
	if qty <= 0 {
		return 0, fmt.Errorf("quantity rounds to zero: notional=%.2f price=%.4f", notional, price)
	}
	return qty, nil
}
