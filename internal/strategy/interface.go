package strategy

import (
	"quantflow/internal/engine"
	"quantflow/internal/model"
	"quantflow/pkg/logger"
)

// 信号源接口定义

// Strategy 信号源。引擎只消费信号，不关心内部评分逻辑
type Strategy interface {
	Name() string
	// GetSignal 1=做多 -1=做空 0=观望
	GetSignal(klines []model.Kline) int
}

// TakeProfitLeveler 可选能力：根据市场环境动态给出止盈档位。
// 策略不实现该接口时引擎使用固定默认档位
type TakeProfitLeveler interface {
	DynamicTakeProfitLevels(klines []model.Kline, marketCondition, trendStrength int) engine.TakeProfitLevels
}

// MarketAnalyzer 可选能力：策略自带市场环境和趋势强度判断，
// 作为动态止盈档位的输入。不具备时调用方使用中性默认值
type MarketAnalyzer interface {
	MarketCondition(klines []model.Kline) int
	TrendStrength(klines []model.Kline) int
}

// ResolveTakeProfitLevels 解析止盈档位。
// 策略不具备动态能力、动态计算panic或返回非法档位时，一律回退到fallback
// （通常来自配置），策略侧的任何故障都不能影响出场检查。
// fallback本身非法时使用固定默认档位
func ResolveTakeProfitLevels(s Strategy, klines []model.Kline, marketCondition, trendStrength int, fallback engine.TakeProfitLevels) (levels engine.TakeProfitLevels) {
	if !fallback.Valid() {
		fallback = engine.DefaultTakeProfitLevels()
	}
	levels = fallback

	leveler, ok := s.(TakeProfitLeveler)
	if !ok {
		return levels
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Warnf("动态止盈档位计算异常，回退配置档位: %v", r)
			levels = fallback
		}
	}()

	dynamic := leveler.DynamicTakeProfitLevels(klines, marketCondition, trendStrength)
	if !dynamic.Valid() {
		logger.Warnf("动态止盈档位非法 %+v，回退配置档位", dynamic)
		return fallback
	}
	return dynamic
}
