package strategy

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"quantflow/internal/engine"
	"quantflow/internal/model"
)

// 动量策略：均线系统 + 成交量确认 + RSI过滤 + MACD，
// 综合加权评分后与动态阈值比较产生方向信号

const (
	lineWMAPeriod  = 55
	openEMAPeriod  = 25
	closeEMAPeriod = 25
	rsiPeriod      = 14
	atrPeriod      = 14

	// 评分所需的最少K线数量
	minSignalBars = 60
)

// 市场环境
const (
	MarketRanging   = 0 // 震荡
	MarketTrending  = 1 // 趋势
	MarketHighVolat = 2 // 高波动
)

type Momentum struct{}

func NewMomentum() *Momentum {
	return &Momentum{}
}

func (s *Momentum) Name() string { return "momentum" }

// GetSignal 综合评分产生交易信号
// 权重：趋势强度0.3 成交量0.2 RSI 0.15 趋势一致性0.1 MACD 0.15
func (s *Momentum) GetSignal(klines []model.Kline) int {
	if len(klines) < minSignalBars {
		return 0
	}

	closes := extract(klines, func(k model.Kline) float64 { return k.Close })
	opens := extract(klines, func(k model.Kline) float64 { return k.Open })
	vols := extract(klines, func(k model.Kline) float64 { return k.Vol })

	lineWMA := talib.Wma(closes, lineWMAPeriod)
	openEMA := talib.Ema(opens, openEMAPeriod)
	rsi := talib.Rsi(closes, rsiPeriod)
	macd, macdSig, _ := talib.Macd(closes, 12, 26, 9)

	cond := s.MarketCondition(klines)
	strength := s.TrendStrength(klines)

	score := (float64(strength) / 3) * 0.3
	score += volumeConfirmation(vols) * 0.2
	score += rsiFilter(rsi) * 0.15
	score += trendConsistency(closes, lineWMA, openEMA) * 0.1
	score += macdScore(macd, macdSig) * 0.15

	threshold := signalThreshold(cond)

	// 震荡市场提高信号要求
	if cond == MarketRanging && math.Abs(score) < threshold*0.8 {
		return 0
	}

	switch {
	case score >= threshold*0.8:
		return 1
	case score <= -threshold*0.8:
		return -1
	default:
		return 0
	}
}

// MarketCondition 根据近期波动率划分市场环境
func (s *Momentum) MarketCondition(klines []model.Kline) int {
	if len(klines) < 11 {
		return MarketTrending
	}
	closes := extract(klines, func(k model.Kline) float64 { return k.Close })
	last := closes[len(closes)-1]
	if last <= 0 {
		return MarketTrending
	}

	std5 := talib.StdDev(closes, 5, 1.0)
	std10 := talib.StdDev(closes, 10, 1.0)
	v5 := std5[len(std5)-1] / last
	v10 := std10[len(std10)-1] / last

	switch {
	case v5 > 0.02 && v10 > 0.015:
		return MarketHighVolat
	case v5 < 0.008 && v10 < 0.01:
		return MarketRanging
	default:
		return MarketTrending
	}
}

// TrendStrength 价格与三条均线的位置关系 + 均线排列，范围[-2, 5]
func (s *Momentum) TrendStrength(klines []model.Kline) int {
	if len(klines) < minSignalBars {
		return 0
	}
	closes := extract(klines, func(k model.Kline) float64 { return k.Close })
	opens := extract(klines, func(k model.Kline) float64 { return k.Open })

	lineWMA := last(talib.Wma(closes, lineWMAPeriod))
	openEMA := last(talib.Ema(opens, openEMAPeriod))
	closeEMA := last(talib.Ema(closes, closeEMAPeriod))
	price := last(closes)

	strength := 0
	if price > lineWMA {
		strength++
	}
	if price > openEMA {
		strength++
	}
	if price > closeEMA {
		strength++
	}

	// 均线多头/空头排列：短周期在上为多头
	if closeEMA > openEMA && openEMA > lineWMA {
		strength += 2
	} else if closeEMA < openEMA && openEMA < lineWMA {
		strength -= 2
	}
	return strength
}

// DynamicTakeProfitLevels 按市场环境给出基础档位，再按趋势强度和ATR缩放
func (s *Momentum) DynamicTakeProfitLevels(klines []model.Kline, marketCondition, trendStrength int) engine.TakeProfitLevels {
	var levels engine.TakeProfitLevels
	switch marketCondition {
	case MarketRanging:
		levels = engine.TakeProfitLevels{Partial1: 0.05, Partial2: 0.08, Full: 0.15}
	case MarketHighVolat:
		levels = engine.TakeProfitLevels{Partial1: 0.10, Partial2: 0.15, Full: 0.25}
	default:
		levels = engine.TakeProfitLevels{Partial1: 0.08, Partial2: 0.12, Full: 0.20}
	}

	// 强趋势放大止盈空间，弱趋势收紧
	abs := trendStrength
	if abs < 0 {
		abs = -abs
	}
	if abs >= 3 {
		levels = scaleLevels(levels, 1.5)
	} else if abs <= 1 {
		levels = scaleLevels(levels, 0.6)
	}

	// 波动率修正
	if len(klines) > atrPeriod {
		highs := extract(klines, func(k model.Kline) float64 { return k.High })
		lows := extract(klines, func(k model.Kline) float64 { return k.Low })
		closes := extract(klines, func(k model.Kline) float64 { return k.Close })
		atr := last(talib.Atr(highs, lows, closes, atrPeriod))
		if price := last(closes); price > 0 && atr > 0 {
			ratio := atr / price
			if ratio > 0.02 {
				levels = scaleLevels(levels, 1.3)
			} else if ratio < 0.01 {
				levels = scaleLevels(levels, 0.7)
			}
		}
	}
	return levels
}

func signalThreshold(marketCondition int) float64 {
	switch marketCondition {
	case MarketRanging:
		return 0.6
	case MarketHighVolat:
		return 0.7
	default:
		return 0.5
	}
}

// 成交量确认：当前量相对5/10周期均量的放大程度
func volumeConfirmation(vols []float64) float64 {
	n := len(vols)
	if n < 10 {
		return 0
	}
	cur := vols[n-1]
	avg5 := mean(vols[n-5:])
	avg10 := mean(vols[n-10:])
	if avg5 <= 0 || avg10 <= 0 {
		return 0
	}
	r5, r10 := cur/avg5, cur/avg10

	switch {
	case r5 > 1.4 && r10 > 1.3:
		return 1.5
	case r5 > 1.2 && r10 > 1.1:
		return 1.0
	case r5 < 0.8 && r10 < 0.9:
		return -0.8
	default:
		return 0
	}
}

// RSI过滤：超卖回升看多、超买回落看空，中性区间看RSI方向
func rsiFilter(rsi []float64) float64 {
	n := len(rsi)
	if n < 2 {
		return 0
	}
	cur, prev := rsi[n-1], rsi[n-2]
	trend := cur - prev

	switch {
	case cur < 40 && trend > 0:
		return 1.5
	case cur < 50 && trend > 0:
		return 0.8
	case cur > 60 && trend < 0:
		return -1.5
	case cur > 50 && trend < 0:
		return -0.8
	case cur >= 40 && cur <= 60 && trend > 0:
		return 0.5
	case cur >= 40 && cur <= 60 && trend < 0:
		return -0.5
	default:
		return 0
	}
}

// 多时间框架趋势一致性：短期看WMA，中期看EMA
func trendConsistency(closes, lineWMA, openEMA []float64) float64 {
	n := len(closes)
	shortTrend := 0
	for i := 1; i <= 3 && i < n; i++ {
		if closes[n-i] > lineWMA[n-i] {
			shortTrend++
		} else if closes[n-i] < lineWMA[n-i] {
			shortTrend--
		}
	}
	mediumTrend := 0
	for i := 4; i <= 8 && i < n; i++ {
		if closes[n-i] > openEMA[n-i] {
			mediumTrend++
		} else if closes[n-i] < openEMA[n-i] {
			mediumTrend--
		}
	}

	switch {
	case shortTrend >= 0 && mediumTrend >= -1:
		return 1.0
	case shortTrend <= 0 && mediumTrend <= 1:
		return -1.0
	case shortTrend >= -1 && mediumTrend >= -1:
		return 0.5
	default:
		return -0.5
	}
}

// MACD：金叉/死叉给满分，趋势延续给半分
func macdScore(macd, sig []float64) float64 {
	n := len(macd)
	if n < 2 {
		return 0
	}
	cur, curSig := macd[n-1], sig[n-1]
	prev, prevSig := macd[n-2], sig[n-2]

	switch {
	case cur > curSig && prev <= prevSig:
		return 1.0
	case cur < curSig && prev >= prevSig:
		return -1.0
	case cur > curSig && cur > 0:
		return 0.5
	case cur < curSig && cur < 0:
		return -0.5
	default:
		return 0
	}
}

func scaleLevels(l engine.TakeProfitLevels, factor float64) engine.TakeProfitLevels {
	l.Partial1 *= factor
	l.Partial2 *= factor
	l.Full *= factor
	return l
}

func extract(klines []model.Kline, f func(model.Kline) float64) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		out[i] = f(k)
	}
	return out
}

func last(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return vals[len(vals)-1]
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
