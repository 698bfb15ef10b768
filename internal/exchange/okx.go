package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	goexv2 "github.com/nntaoli-project/goex/v2"
	gmodel "github.com/nntaoli-project/goex/v2/model"
	"github.com/nntaoli-project/goex/v2/okx/futures"
	"github.com/nntaoli-project/goex/v2/options"

	"quantflow/internal/model"
	"quantflow/pkg/logger"
	"quantflow/pkg/utils"
)

// OKX永续合约接入，基于goex v2
type Okx struct {
	prv    goexv2.IPrvRest
	pub    goexv2.IPubRest
	mgnMod string

	mu    sync.Mutex
	pairs map[string]gmodel.CurrencyPair
}

// NewOkx 创建OKX永续合约客户端
// simulated为true时走OKX模拟盘（apikey需要在模拟交易下创建）
func NewOkx(apiKey, secretKey, passphrase string, simulated bool) *Okx {
	if simulated {
		goexv2.DefaultHttpCli.SetHeaders("x-simulated-trading", "1")
	}

	opts := []options.ApiOption{
		options.WithApiKey(apiKey),
		options.WithApiSecretKey(secretKey),
		options.WithPassphrase(passphrase),
	}

	pub := goexv2.OKx.Swap
	return &Okx{
		prv:    pub.NewPrvApi(opts...),
		pub:    pub,
		mgnMod: MgnModeIsolated,
		pairs:  make(map[string]gmodel.CurrencyPair),
	}
}

// symbol格式转换: "ETH/USDT" -> goex需要的CurrencyPair
func (e *Okx) toCurrencyPair(symbol string) (gmodel.CurrencyPair, error) {
	e.mu.Lock()
	if pair, ok := e.pairs[symbol]; ok {
		e.mu.Unlock()
		return pair, nil
	}
	e.mu.Unlock()

	parts := strings.Split(symbol, "/")
	if len(parts) == 1 {
		parts = strings.Split(symbol, "-")
	}
	if len(parts) < 2 {
		return gmodel.CurrencyPair{}, fmt.Errorf("invalid symbol format: %s", symbol)
	}
	pair, err := e.pub.NewCurrencyPair(parts[0], parts[1])
	if err != nil {
		return gmodel.CurrencyPair{}, err
	}

	e.mu.Lock()
	e.pairs[symbol] = pair
	e.mu.Unlock()
	return pair, nil
}

func (e *Okx) GetLastPrice(symbol string) (float64, error) {
	pair, err := e.toCurrencyPair(symbol)
	if err != nil {
		return 0, err
	}
	ticker, _, err := e.pub.GetTicker(pair)
	if err != nil {
		return 0, err
	}
	if ticker == nil {
		return 0, errors.New("failed to get ticker")
	}
	return ticker.Last, nil
}

// GetKlineRecords 拉取1小时K线并转为内部格式，按时间升序返回
func (e *Okx) GetKlineRecords(symbol string, size int) ([]model.Kline, error) {
	return e.fetchKlines(symbol, size, nil)
}

// GetKlineRecordsBefore 拉取beforeMs之前的K线，用于向更早方向翻页。
// okx的after参数语义是"早于该时间戳"
func (e *Okx) GetKlineRecordsBefore(symbol string, size int, beforeMs int64) ([]model.Kline, error) {
	return e.fetchKlines(symbol, size, []gmodel.OptionParameter{
		{Key: "after", Value: strconv.FormatInt(beforeMs, 10)},
	})
}

func (e *Okx) fetchKlines(symbol string, size int, extra []gmodel.OptionParameter) ([]model.Kline, error) {
	pair, err := e.toCurrencyPair(symbol)
	if err != nil {
		return nil, err
	}

	var opts []gmodel.OptionParameter
	if size > 0 {
		opts = append(opts, gmodel.OptionParameter{
			Key:   "limit",
			Value: strconv.Itoa(size),
		})
	}
	opts = append(opts, extra...)

	lines, _, err := e.pub.GetKline(pair, gmodel.Kline_1h, opts...)
	if err != nil {
		return nil, err
	}

	items := make([]model.Kline, 0, len(lines))
	for _, item := range lines {
		items = append(items, model.Kline{
			Timestamp: time.UnixMilli(item.Timestamp),
			Open:      item.Open,
			Close:     item.Close,
			High:      item.High,
			Low:       item.Low,
			Vol:       item.Vol,
		})
	}
	// okx按时间倒序返回，翻转为升序
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

// GetBalance 查询指定币种可用余额
// goex私有方法没有context，用超时控制包一层
func (e *Okx) GetBalance(ctx context.Context, coin string) (float64, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	type result struct {
		bal map[string]gmodel.Account
		err error
	}
	ch := make(chan result, 1)
	go func() {
		bal, _, err := e.prv.GetAccount(coin)
		ch <- result{bal, err}
	}()

	select {
	case <-timeoutCtx.Done():
		return 0, timeoutCtx.Err()
	case r := <-ch:
		if r.err != nil {
			return 0, r.err
		}
		acc, ok := r.bal[coin]
		if !ok {
			return 0, errors.New("account info not found for coin " + coin)
		}
		return acc.AvailableBalance, nil
	}
}

// goex的Position结构不带这些字段，从原始应答里按下标配对取
type positionRaw struct {
	MgnMode  string `json:"mgnMode"`
	Lever    string `json:"lever"`
	CTime    string `json:"cTime"`
	UplRatio string `json:"uplRatio"`
}

func decodePositionRaw(data []byte) ([]positionRaw, error) {
	var body struct {
		Code string        `json:"code"`
		Data []positionRaw `json:"data"`
		Msg  string        `json:"msg"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// GetPosition 查询当前持仓，无持仓返回nil
// 开仓时间等字段保持交易所原始字符串，由对账侧解析
func (e *Okx) GetPosition(symbol string) (*model.PositionInfo, error) {
	pair, err := e.toCurrencyPair(symbol)
	if err != nil {
		return nil, err
	}

	prv, ok := e.prv.(*futures.PrvApi)
	if !ok {
		return nil, errors.New("当前API类型不支持获取仓位")
	}

	positions, data, err := prv.GetPositions(pair)
	if err != nil {
		return nil, err
	}
	raws, err := decodePositionRaw(data)
	if err != nil {
		return nil, err
	}

	for i, pos := range positions {
		if pos.Qty == 0 {
			continue
		}
		dir := model.Long
		if pos.PosSide == gmodel.Futures_OpenSell || pos.PosSide == gmodel.Spot_Sell {
			dir = model.Short
		}
		info := &model.PositionInfo{
			Symbol:   symbol,
			Dir:      dir,
			Amount:   pos.Qty,
			AvgPrice: pos.AvgPx,
			MgnMode:  e.mgnMod,
		}
		if i < len(raws) {
			raw := raws[i]
			if raw.MgnMode != "" {
				info.MgnMode = raw.MgnMode
			}
			info.Lever = raw.Lever
			info.CTime = raw.CTime
			info.UplRatio = raw.UplRatio
		}
		return info, nil
	}
	return nil, nil
}

// OpenPosition 市价开仓，qty单位为币
func (e *Okx) OpenPosition(ctx context.Context, symbol string, dir model.Direction, qty float64) (*model.OrderResponse, error) {
	side := gmodel.Futures_OpenBuy
	if dir == model.Short {
		side = gmodel.Futures_OpenSell
	}
	return e.createMarketOrder(symbol, dir, side, qty)
}

// ClosePosition 市价平仓：多仓卖出平多，空仓买入平空
func (e *Okx) ClosePosition(ctx context.Context, symbol string, dir model.Direction, qty float64) (*model.OrderResponse, error) {
	side := gmodel.Futures_CloseBuy
	if dir == model.Short {
		side = gmodel.Futures_CloseSell
	}
	return e.createMarketOrder(symbol, dir, side, qty)
}

func (e *Okx) createMarketOrder(symbol string, dir model.Direction, side gmodel.OrderSide, qty float64) (*model.OrderResponse, error) {
	pair, err := e.toCurrencyPair(symbol)
	if err != nil {
		return nil, err
	}

	opts := []gmodel.OptionParameter{
		{Key: "tdMode", Value: e.mgnMod},
		{Key: "posSide", Value: dir.String()},
	}

	order, _, err := e.prv.CreateOrder(pair, qty, 0, side, gmodel.OrderType_Market, opts...)
	if err != nil {
		logger.Errorf("CreateOrder error: %v", err)
		return nil, err
	}

	return &model.OrderResponse{
		OrderId: order.Id,
		Status:  int(order.Status),
	}, nil
}

// SetLeverage 设置合约杠杆，逐仓模式下两个方向都要设置
func (e *Okx) SetLeverage(symbol string, leverage int) error {
	pair, err := e.toCurrencyPair(symbol)
	if err != nil {
		return err
	}

	prv, ok := e.prv.(*futures.PrvApi)
	if !ok {
		return errors.New("当前API类型不支持设置杠杆")
	}

	for _, posSide := range []string{"long", "short"} {
		opts := []gmodel.OptionParameter{
			{Key: "mgnMode", Value: e.mgnMod},
			{Key: "posSide", Value: posSide},
		}
		if _, err := prv.SetLeverage(pair.Symbol, strconv.Itoa(leverage), opts...); err != nil {
			return fmt.Errorf("设置杠杆失败: %w", err)
		}
	}
	return nil
}

// RoundPrice 价格修正到交易对精度
func (e *Okx) RoundPrice(symbol string, price float64) float64 {
	pair, err := e.toCurrencyPair(symbol)
	if err != nil {
		return price
	}
	return utils.FloorFloat(price, pair.PricePrecision)
}

// RoundQuantity 数量修正到交易对精度
func (e *Okx) RoundQuantity(symbol string, qty float64) float64 {
	pair, err := e.toCurrencyPair(symbol)
	if err != nil {
		return qty
	}
	return utils.FloorFloat(qty, pair.QtyPrecision)
}
