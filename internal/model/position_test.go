package model

import (
	"encoding/json"
	"testing"
	"time"

	goccy "github.com/goccy/go-json"
)

// 多仓的LowWater内部是+Inf，序列化必须可用且归零
func TestPosition_MarshalJSON_LongInfWatermark(t *testing.T) {
	pos := NewOpenPosition(Long, 100, 1400, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	data, err := json.Marshal(pos)
	if err != nil {
		t.Fatalf("marshal fail: %v", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal fail: %v", err)
	}
	if out["low_water"].(float64) != 0 {
		t.Errorf("low_water = %v, want 0", out["low_water"])
	}
	if out["high_water"].(float64) != 100 {
		t.Errorf("high_water = %v, want 100", out["high_water"])
	}

	// websocket推送走goccy，同样必须可用
	if _, err := goccy.Marshal(pos); err != nil {
		t.Fatalf("goccy marshal fail: %v", err)
	}
}

func TestPosition_MarshalJSON_Short(t *testing.T) {
	pos := NewOpenPosition(Short, 100, 1400, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	data, err := json.Marshal(pos)
	if err != nil {
		t.Fatalf("marshal fail: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal fail: %v", err)
	}
	if out["low_water"].(float64) != 100 {
		t.Errorf("low_water = %v, want 100", out["low_water"])
	}
}

// 嵌套在监控响应结构里时同样不能带Inf
func TestPosition_MarshalJSON_Embedded(t *testing.T) {
	payload := struct {
		Symbol   string   `json:"symbol"`
		Position Position `json:"position"`
	}{
		Symbol:   "ETH/USDT",
		Position: NewOpenPosition(Long, 2000, 1400, time.Now().UTC()),
	}
	if _, err := json.Marshal(payload); err != nil {
		t.Fatalf("marshal fail: %v", err)
	}
}
