package live

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"quantflow/conf"
	"quantflow/internal/model"
)

// fakeExchange 可编程的交易所替身
type fakeExchange struct {
	mu          sync.Mutex
	price       float64
	klines      []model.Kline
	pos         *model.PositionInfo
	balance     float64
	opens       int
	closes      int
	lastOpenQty float64
	leverage    int
}

func (f *fakeExchange) GetLastPrice(_ string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.price, nil
}

func (f *fakeExchange) GetKlineRecords(_ string, _ int) ([]model.Kline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.klines, nil
}

func (f *fakeExchange) GetBalance(_ context.Context, _ string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, nil
}

func (f *fakeExchange) GetPosition(_ string) (*model.PositionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos, nil
}

func (f *fakeExchange) OpenPosition(_ context.Context, _ string, _ model.Direction, qty float64) (*model.OrderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	f.lastOpenQty = qty
	return &model.OrderResponse{OrderId: "fake-open"}, nil
}

func (f *fakeExchange) ClosePosition(_ context.Context, _ string, _ model.Direction, _ float64) (*model.OrderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return &model.OrderResponse{OrderId: "fake-close"}, nil
}

func (f *fakeExchange) SetLeverage(_ string, leverage int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leverage = leverage
	return nil
}

func (f *fakeExchange) RoundPrice(_ string, price float64) float64  { return price }
func (f *fakeExchange) RoundQuantity(_ string, qty float64) float64 { return qty }

// idle 不产生信号的策略
type idle struct{}

func (idle) Name() string                  { return "idle" }
func (idle) GetSignal(_ []model.Kline) int { return 0 }

// longOnly 持续多头信号
type longOnly struct{}

func (longOnly) Name() string                  { return "long-only" }
func (longOnly) GetSignal(_ []model.Kline) int { return 1 }

func flatKlines(n int, price float64) []model.Kline {
	ts := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Kline, n)
	for i := 0; i < n; i++ {
		out[i] = model.Kline{
			Timestamp: ts.Add(time.Duration(i) * time.Hour),
			Open:      price, Close: price,
			High: price, Low: price, Vol: 1000,
		}
	}
	return out
}

func closeTo(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestReconcile_AdoptExchangePosition(t *testing.T) {
	fake := &fakeExchange{
		price: 2000,
		pos: &model.PositionInfo{
			Symbol:   "ETH/USDT",
			Dir:      model.Long,
			Amount:   0.5,
			AvgPrice: 2000,
			CTime:    "1717236000000",
		},
	}
	tr := NewTrader(conf.DefaultTradingConfig(), fake, idle{}, nil)

	if err := tr.Reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile fail: %v", err)
	}

	pos := tr.Ledger().Position()
	if !pos.IsOpen() || pos.Direction != model.Long {
		t.Fatalf("接管后仓位 = %+v", pos)
	}
	if !closeTo(pos.Notional, 1000) || !closeTo(pos.EntryPrice, 2000) {
		t.Errorf("notional=%.2f entry=%.2f, want 1000/2000", pos.Notional, pos.EntryPrice)
	}
	if pos.HighWater != 2000 || !math.IsInf(pos.LowWater, 1) {
		t.Errorf("水位线未按开仓价初始化: %+v", pos)
	}
	want := time.UnixMilli(1717236000000).UTC()
	if !pos.OpenedAt.Equal(want) {
		t.Errorf("openedAt = %v, want %v", pos.OpenedAt, want)
	}
}

func TestReconcile_ClearStalePosition(t *testing.T) {
	fake := &fakeExchange{price: 100, balance: 900}
	tr := NewTrader(conf.DefaultTradingConfig(), fake, idle{}, nil)
	tr.Ledger().ForceReplace(
		model.NewOpenPosition(model.Long, 100, 1400, time.Now().UTC()), 998)

	if err := tr.Reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile fail: %v", err)
	}

	if tr.Ledger().Position().IsOpen() {
		t.Error("交易所侧无仓位时账本应清空")
	}
	// 清仓后按交易所余额重新校准现金
	if got := tr.Ledger().Account().Cash; !closeTo(got, 900) {
		t.Errorf("cash = %.2f, want 900", got)
	}
}

func TestReconcile_SizeDrift(t *testing.T) {
	fake := &fakeExchange{
		price: 100,
		pos: &model.PositionInfo{
			Dir:      model.Long,
			Amount:   7, // 700 USDT，账本记的是1400
			AvgPrice: 100,
			CTime:    "1717236000000",
		},
	}
	tr := NewTrader(conf.DefaultTradingConfig(), fake, idle{}, nil)
	tr.Ledger().ForceReplace(
		model.NewOpenPosition(model.Long, 100, 1400, time.Now().UTC()), 998)

	if err := tr.Reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile fail: %v", err)
	}

	if got := tr.Ledger().Position().Notional; !closeTo(got, 700) {
		t.Errorf("notional = %.2f, want 700（以交易所为准）", got)
	}
}

func TestReconcile_MatchKeepsWatermarks(t *testing.T) {
	fake := &fakeExchange{
		price: 105,
		pos: &model.PositionInfo{
			Dir:      model.Long,
			Amount:   14,
			AvgPrice: 100,
			CTime:    "1717236000000",
		},
	}
	tr := NewTrader(conf.DefaultTradingConfig(), fake, idle{}, nil)
	pos := model.NewOpenPosition(model.Long, 100, 1400, time.Now().UTC())
	pos.HighWater = 110 // 本地已记录的最高价
	tr.Ledger().ForceReplace(pos, 998)

	if err := tr.Reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile fail: %v", err)
	}

	if got := tr.Ledger().Position().HighWater; got != 110 {
		t.Errorf("highWater = %.2f，一致的仓位不应重置水位线", got)
	}
}

func TestStep_SignalOpensPosition(t *testing.T) {
	fake := &fakeExchange{price: 100, klines: flatKlines(60, 100), balance: 1000}
	tr := NewTrader(conf.DefaultTradingConfig(), fake, longOnly{}, nil)

	if err := tr.step(context.Background()); err != nil {
		t.Fatalf("step fail: %v", err)
	}

	pos := tr.Ledger().Position()
	if !pos.IsOpen() || pos.Direction != model.Long {
		t.Fatalf("仓位 = %+v", pos)
	}
	if !closeTo(pos.Notional, 1400) {
		t.Errorf("notional = %.2f, want 1400", pos.Notional)
	}
	if fake.opens != 1 || !closeTo(fake.lastOpenQty, 14) {
		t.Errorf("exchange opens=%d qty=%.4f, want 1/14", fake.opens, fake.lastOpenQty)
	}
	if got := len(tr.Equity().Samples()); got != 1 {
		t.Errorf("equity samples = %d, want 1", got)
	}
}

func TestHandleSignal_ReverseCloses(t *testing.T) {
	fake := &fakeExchange{price: 100, balance: 950}
	tr := NewTrader(conf.DefaultTradingConfig(), fake, longOnly{}, nil)

	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	tr.handleSignal(context.Background(), 1, 100, t0)
	if !tr.Ledger().Position().IsOpen() {
		t.Fatal("多头信号应开仓")
	}

	// 冷却期内的反向信号被忽略
	tr.handleSignal(context.Background(), -1, 100, t0.Add(time.Second))
	if !tr.Ledger().Position().IsOpen() {
		t.Fatal("冷却期内不应平仓")
	}

	// 冷却结束后反向信号平仓
	tr.handleSignal(context.Background(), -1, 100, t0.Add(10*time.Minute))
	if tr.Ledger().Position().IsOpen() {
		t.Fatal("反向信号应平仓")
	}
	trades := tr.Ledger().Trades()
	last := trades[len(trades)-1]
	if last.Reason != model.ReasonSignalReverse {
		t.Errorf("close reason = %s, want signal_reverse", last.Reason)
	}
	// 平仓后按交易所余额校准现金
	if got := tr.Ledger().Account().Cash; !closeTo(got, 950) {
		t.Errorf("cash = %.2f, want 950", got)
	}
}

func TestStop_ForcesClose(t *testing.T) {
	cfg := conf.DefaultTradingConfig()
	cfg.PollInterval = 50 * time.Millisecond
	fake := &fakeExchange{price: 100, klines: flatKlines(60, 100), balance: 1000}
	tr := NewTrader(cfg, fake, idle{}, nil)

	ctx := context.Background()
	if err := tr.Start(ctx); err != nil {
		t.Fatalf("start fail: %v", err)
	}
	if fake.leverage != cfg.Leverage {
		t.Errorf("启动时应设置杠杆，got %d", fake.leverage)
	}

	tr.Ledger().ForceReplace(
		model.NewOpenPosition(model.Long, 100, 1400, time.Now().UTC()), 999.16)

	if err := tr.Stop(ctx); err != nil {
		t.Fatalf("stop fail: %v", err)
	}

	if tr.Ledger().Position().IsOpen() {
		t.Error("停机时应强制平仓")
	}
	trades := tr.Ledger().Trades()
	last := trades[len(trades)-1]
	if last.Reason != model.ReasonStopRequested {
		t.Errorf("close reason = %s, want stop_requested", last.Reason)
	}
}
