package exchange

import (
	"context"
	"testing"
	"time"

	"quantflow/internal/model"
)

var baseSinkTime = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func TestSimulated_GetLastPrice(t *testing.T) {
	ex := NewSimulated(1000)

	symbol := "ETH/USDT"
	ex.SetInitialPrice(symbol, 3000)

	// 连续获取10次价格，确保波动范围合理
	for i := 0; i < 10; i++ {
		price, err := ex.GetLastPrice(symbol)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if price <= 0 {
			t.Errorf("invalid price: %.2f", price)
		}
		if price < 2700 || price > 3300 {
			t.Errorf("price %.2f outside expected range", price)
		}
	}
}

func TestSimulated_GetKlineRecords(t *testing.T) {
	ex := NewSimulated(1000)
	ex.SetInitialPrice("ETH/USDT", 3000)

	klines, err := ex.GetKlineRecords("ETH/USDT", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(klines) != 100 {
		t.Fatalf("klines = %d, want 100", len(klines))
	}
	// 升序且OHLC自洽
	for i, k := range klines {
		if i > 0 && !k.Timestamp.After(klines[i-1].Timestamp) {
			t.Fatalf("klines not ascending at %d", i)
		}
		if k.High < k.Low || k.High < k.Close || k.Low > k.Open {
			t.Errorf("invalid ohlc at %d: %+v", i, k)
		}
	}
}

func TestSimulated_PositionLifecycle(t *testing.T) {
	ex := NewSimulated(1000)
	ex.SetInitialPrice("ETH/USDT", 3000)
	ctx := context.Background()

	if _, err := ex.OpenPosition(ctx, "ETH/USDT", model.Long, 0.5); err != nil {
		t.Fatalf("open fail: %v", err)
	}

	pos, err := ex.GetPosition("ETH/USDT")
	if err != nil || pos == nil {
		t.Fatalf("expect position, got %v err=%v", pos, err)
	}
	if pos.Dir != model.Long || pos.Amount != 0.5 {
		t.Errorf("position = %+v", pos)
	}

	// 部分平仓后张数减少
	if _, err := ex.ClosePosition(ctx, "ETH/USDT", model.Long, 0.2); err != nil {
		t.Fatalf("partial close fail: %v", err)
	}
	pos, _ = ex.GetPosition("ETH/USDT")
	if pos == nil || pos.Amount != 0.3 {
		t.Fatalf("expect amount 0.3, got %+v", pos)
	}

	// 全平后无持仓
	if _, err := ex.ClosePosition(ctx, "ETH/USDT", model.Long, 0.3); err != nil {
		t.Fatalf("close fail: %v", err)
	}
	pos, _ = ex.GetPosition("ETH/USDT")
	if pos != nil {
		t.Errorf("expect nil position, got %+v", pos)
	}
}

func TestLiveSink_SubmitOpen(t *testing.T) {
	ex := NewSimulated(1000)
	ex.SetInitialPrice("ETH/USDT", 3000)
	sink := NewLiveSink(ex, "ETH/USDT")
	ctx := context.Background()

	if err := sink.SubmitOpen(ctx, model.Long, 3000, 1400, baseSinkTime); err != nil {
		t.Fatalf("submit open fail: %v", err)
	}
	pos, _ := ex.GetPosition("ETH/USDT")
	if pos == nil || pos.Dir != model.Long {
		t.Fatalf("expect long position, got %+v", pos)
	}

	if err := sink.SubmitOpen(ctx, model.Long, 0, 1400, baseSinkTime); err == nil {
		t.Error("zero price should fail")
	}
}
