package strategy

import (
	"math"
	"testing"
	"time"

	"quantflow/internal/engine"
	"quantflow/internal/model"
)

// 构造K线序列，drift为每根K线的涨跌幅
func makeKlines(n int, start, drift float64) []model.Kline {
	ts := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Kline, n)
	price := start
	for i := 0; i < n; i++ {
		next := price * (1 + drift)
		out[i] = model.Kline{
			Timestamp: ts.Add(time.Duration(i) * time.Hour),
			Open:      price,
			Close:     next,
			High:      math.Max(price, next) * 1.001,
			Low:       math.Min(price, next) * 0.999,
			Vol:       1000,
			VolCcy:    1000 * price,
		}
		price = next
	}
	return out
}

// 数据不足时只能观望
func TestMomentum_NotEnoughData(t *testing.T) {
	s := NewMomentum()
	if got := s.GetSignal(makeKlines(30, 100, 0.01)); got != 0 {
		t.Errorf("signal = %d, want 0", got)
	}
}

// 持续上涨不应给出做空信号，持续下跌不应给出做多信号
func TestMomentum_SignalDirection(t *testing.T) {
	s := NewMomentum()

	up := s.GetSignal(makeKlines(120, 100, 0.005))
	if up == -1 {
		t.Errorf("上涨行情 signal = %d，不应做空", up)
	}

	down := s.GetSignal(makeKlines(120, 100, -0.005))
	if down == 1 {
		t.Errorf("下跌行情 signal = %d，不应做多", down)
	}
}

// 趋势强度：持续上涨时价格应站上全部均线并呈多头排列
func TestMomentum_TrendStrength(t *testing.T) {
	s := NewMomentum()

	if got := s.TrendStrength(makeKlines(120, 100, 0.005)); got < 3 {
		t.Errorf("上涨趋势强度 = %d, want >= 3", got)
	}
	if got := s.TrendStrength(makeKlines(120, 100, -0.005)); got > 0 {
		t.Errorf("下跌趋势强度 = %d, want <= 0", got)
	}
}

// 横盘序列应判为震荡市场
func TestMomentum_MarketCondition(t *testing.T) {
	s := NewMomentum()

	flat := makeKlines(60, 100, 0)
	if got := s.MarketCondition(flat); got != MarketRanging {
		t.Errorf("横盘 condition = %d, want %d", got, MarketRanging)
	}

	// 大幅波动序列
	wild := makeKlines(60, 100, 0)
	for i := range wild {
		if i%2 == 0 {
			wild[i].Close = wild[i].Open * 1.04
		} else {
			wild[i].Close = wild[i].Open * 0.96
		}
	}
	if got := s.MarketCondition(wild); got != MarketHighVolat {
		t.Errorf("剧烈波动 condition = %d, want %d", got, MarketHighVolat)
	}
}

// 动态止盈档位随市场环境和趋势强度变化，且保持升序
func TestMomentum_DynamicTakeProfitLevels(t *testing.T) {
	s := NewMomentum()
	klines := makeKlines(120, 100, 0.001)

	ranging := s.DynamicTakeProfitLevels(klines, MarketRanging, 2)
	trending := s.DynamicTakeProfitLevels(klines, MarketTrending, 2)
	if ranging.Full >= trending.Full {
		t.Errorf("震荡市场止盈 %.4f 应低于趋势市场 %.4f", ranging.Full, trending.Full)
	}

	weak := s.DynamicTakeProfitLevels(klines, MarketTrending, 1)
	strong := s.DynamicTakeProfitLevels(klines, MarketTrending, 4)
	if weak.Full >= strong.Full {
		t.Errorf("弱趋势止盈 %.4f 应低于强趋势 %.4f", weak.Full, strong.Full)
	}

	for _, l := range []engine.TakeProfitLevels{ranging, trending, weak, strong} {
		if !(l.Partial1 < l.Partial2 && l.Partial2 < l.Full) {
			t.Errorf("档位应保持升序: %+v", l)
		}
	}
}

// 无动态能力的策略回退到默认档位
type plainStrategy struct{}

func (plainStrategy) Name() string                  { return "plain" }
func (plainStrategy) GetSignal(_ []model.Kline) int { return 0 }

// 动态计算panic的策略
type panicStrategy struct{ plainStrategy }

func (panicStrategy) DynamicTakeProfitLevels(_ []model.Kline, _, _ int) engine.TakeProfitLevels {
	panic("boom")
}

// 返回非法档位的策略
type badLevelStrategy struct{ plainStrategy }

func (badLevelStrategy) DynamicTakeProfitLevels(_ []model.Kline, _, _ int) engine.TakeProfitLevels {
	return engine.TakeProfitLevels{Partial1: 0.2, Partial2: 0.1, Full: 0.05}
}

func TestResolveTakeProfitLevels_Fallback(t *testing.T) {
	fallback := engine.TakeProfitLevels{Partial1: 0.02, Partial2: 0.03, Full: 0.04}
	klines := makeKlines(120, 100, 0.001)

	cases := []struct {
		name string
		s    Strategy
	}{
		{"无动态能力", plainStrategy{}},
		{"动态计算panic", panicStrategy{}},
		{"非法档位", badLevelStrategy{}},
	}
	for _, c := range cases {
		if got := ResolveTakeProfitLevels(c.s, klines, MarketTrending, 2, fallback); got != fallback {
			t.Errorf("%s: levels = %+v, want %+v", c.name, got, fallback)
		}
	}

	// fallback自身非法时退回固定默认档位
	bad := engine.TakeProfitLevels{Partial1: 0.2, Partial2: 0.1}
	if got := ResolveTakeProfitLevels(plainStrategy{}, klines, MarketTrending, 2, bad); got != engine.DefaultTakeProfitLevels() {
		t.Errorf("非法fallback: levels = %+v, want defaults", got)
	}
}

func TestResolveTakeProfitLevels_Dynamic(t *testing.T) {
	s := NewMomentum()
	klines := makeKlines(120, 100, 0.001)

	got := ResolveTakeProfitLevels(s, klines, MarketHighVolat, 2, engine.DefaultTakeProfitLevels())
	want := s.DynamicTakeProfitLevels(klines, MarketHighVolat, 2)
	if got != want {
		t.Errorf("levels = %+v, want %+v", got, want)
	}
}

func TestRegistry(t *testing.T) {
	Register(NewMomentum())

	s, err := Get("momentum")
	if err != nil || s.Name() != "momentum" {
		t.Fatalf("Get fail: %v", err)
	}
	if _, err := Get("missing"); err == nil {
		t.Error("未注册策略应报错")
	}
	if _, err := Any(); err != nil {
		t.Errorf("Any fail: %v", err)
	}
}
