package live

import (
	"context"
	"math"
	"time"

	"github.com/spf13/cast"

	"quantflow/internal/model"
	"quantflow/pkg/errors"
	"quantflow/pkg/errors/ecode"
	"quantflow/pkg/logger"
	"quantflow/pkg/utils"
)

// 仓位对账：以交易所侧为准。手工操作、爆仓、部分成交都会让账本和
// 交易所产生偏差，发现偏差时整体替换账本仓位，不做增量修补

// 名义价值相对偏差超过该值视为失配
const reconcileTolerance = 0.01

func (t *Trader) Reconcile(ctx context.Context) error {
	var info *model.PositionInfo
	if err := utils.Retry(apiRetries, apiRetryDelay, true, func() error {
		var e error
		info, e = t.ex.GetPosition(t.cfg.Symbol)
		return e
	}); err != nil {
		return errors.Wrap(ecode.CollaboratorFailure, err)
	}

	local := t.ledger.Position()

	switch {
	case info == nil && !local.IsOpen():
		return nil

	case info == nil && local.IsOpen():
		// 交易所侧已无仓位（手工平仓或爆仓），清掉账本仓位并重新校准现金
		logger.Warn("账本持仓在交易所侧不存在，已清除",
			logger.Pair("symbol", t.cfg.Symbol),
			logger.Pair("direction", local.Direction.String()),
			logger.Pair("notional", local.Notional),
			logger.Pair("code", ecode.ExchangeSyncDrift))
		t.ledger.ForceReplace(model.Position{}, t.ledger.Account().Cash)
		t.refreshBalance(ctx)
		return nil

	case info != nil && !local.IsOpen():
		// 交易所侧有账本不知道的仓位，照单全收
		adopted := positionFromExchange(info)
		logger.Warn("发现交易所侧孤立仓位，已接管",
			logger.Pair("symbol", t.cfg.Symbol),
			logger.Pair("direction", adopted.Direction.String()),
			logger.Pair("entryPrice", adopted.EntryPrice),
			logger.Pair("notional", adopted.Notional),
			logger.Pair("code", ecode.ExchangeSyncDrift))
		t.ledger.ForceReplace(adopted, t.ledger.Account().Cash)
		return nil
	}

	// 两侧都有仓位，校验方向和规模
	remote := positionFromExchange(info)
	sizeDrift := math.Abs(remote.Notional-local.Notional) / local.Notional
	if remote.Direction == local.Direction && sizeDrift <= reconcileTolerance {
		return nil
	}

	logger.Warn("账本持仓与交易所不一致，以交易所为准",
		logger.Pair("symbol", t.cfg.Symbol),
		logger.Pair("localDirection", local.Direction.String()),
		logger.Pair("remoteDirection", remote.Direction.String()),
		logger.Pair("localNotional", local.Notional),
		logger.Pair("remoteNotional", remote.Notional),
		logger.Pair("code", ecode.ExchangeSyncDrift))
	t.ledger.ForceReplace(remote, t.ledger.Account().Cash)
	return nil
}

// positionFromExchange 把交易所上报的仓位折算成账本仓位，
// 水位线按开仓价重新初始化。
// 交易所没给开仓时间时用当前时间兜底，避免把仓位记到1970年
func positionFromExchange(info *model.PositionInfo) model.Position {
	openedAt := time.Now().UTC()
	if ms := cast.ToInt64(info.CTime); ms > 0 {
		openedAt = time.UnixMilli(ms).UTC()
	}
	notional := info.Amount * info.AvgPrice
	return model.NewOpenPosition(info.Dir, info.AvgPrice, notional, openedAt)
}
