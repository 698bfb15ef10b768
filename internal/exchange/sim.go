package exchange

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"quantflow/internal/model"
)

// 模拟交易所：订单立即成交，价格本地随机游走，适合本地联调和测试
type Simulated struct {
	mu      sync.Mutex
	prices  map[string]float64
	orders  map[string]*model.OrderResponse
	pos     map[string]*model.PositionInfo
	balance float64
	rnd     *rand.Rand
}

func NewSimulated(balance float64) *Simulated {
	return &Simulated{
		prices:  make(map[string]float64),
		orders:  make(map[string]*model.OrderResponse),
		pos:     make(map[string]*model.PositionInfo),
		balance: balance,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetInitialPrice 设置初始价格
func (s *Simulated) SetInitialPrice(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
}

// GetLastPrice 返回本地价格并做±0.5%浮动
func (s *Simulated) GetLastPrice(symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	price, ok := s.prices[symbol]
	if !ok {
		price = 1000 + s.rnd.Float64()*2000
	}
	price += (s.rnd.Float64()*0.01 - 0.005) * price
	s.prices[symbol] = price
	return price, nil
}

// GetKlineRecords 从当前价格倒推生成随机游走K线
func (s *Simulated) GetKlineRecords(symbol string, size int) ([]model.Kline, error) {
	last, err := s.GetLastPrice(symbol)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	klines := make([]model.Kline, size)
	now := time.Now().Truncate(time.Hour)
	price := last
	for i := size - 1; i >= 0; i-- {
		open := price / (1 + (s.rnd.Float64()*0.02 - 0.01))
		high := open
		low := open
		if price > high {
			high = price
		}
		if price < low {
			low = price
		}
		klines[i] = model.Kline{
			Timestamp: now.Add(-time.Duration(size-1-i) * time.Hour),
			Open:      open,
			Close:     price,
			High:      high * 1.002,
			Low:       low * 0.998,
			Vol:       1000 + s.rnd.Float64()*500,
		}
		price = open
	}
	return klines, nil
}

func (s *Simulated) GetBalance(ctx context.Context, coin string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance, nil
}

func (s *Simulated) GetPosition(symbol string) (*model.PositionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pos[symbol]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// OpenPosition 立即成交并记录本地持仓
func (s *Simulated) OpenPosition(ctx context.Context, symbol string, dir model.Direction, qty float64) (*model.OrderResponse, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("invalid quantity %.6f", qty)
	}
	price, _ := s.GetLastPrice(symbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	orderID := uuid.NewString()
	resp := &model.OrderResponse{
		OrderId: orderID,
		Status:  1,
		Message: "Simulated order filled",
	}
	s.orders[orderID] = resp
	s.pos[symbol] = &model.PositionInfo{
		Symbol:   symbol,
		Dir:      dir,
		Amount:   qty,
		AvgPrice: price,
		MgnMode:  MgnModeIsolated,
		CTime:    fmt.Sprintf("%d", time.Now().UnixMilli()),
	}
	return resp, nil
}

// ClosePosition 立即成交，减少或清空本地持仓
func (s *Simulated) ClosePosition(ctx context.Context, symbol string, dir model.Direction, qty float64) (*model.OrderResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pos[symbol]
	if !ok || p.Dir != dir {
		return nil, fmt.Errorf("no %s position for %s", dir, symbol)
	}
	if qty >= p.Amount {
		delete(s.pos, symbol)
	} else {
		p.Amount -= qty
	}

	orderID := uuid.NewString()
	resp := &model.OrderResponse{
		OrderId: orderID,
		Status:  1,
		Message: "Simulated order filled",
	}
	s.orders[orderID] = resp
	return resp, nil
}

func (s *Simulated) SetLeverage(symbol string, leverage int) error { return nil }

func (s *Simulated) RoundPrice(symbol string, price float64) float64  { return price }
func (s *Simulated) RoundQuantity(symbol string, qty float64) float64 { return qty }
