package exchange

import (
	"fmt"

	"go.uber.org/multierr"

	"quantflow/internal/model"
	"quantflow/pkg/logger"
)

// 分页历史K线加载。OKX单次请求最多返回约100根K线，
// 回测需要的历史长度远超单页，按时间游标向更早方向翻页拼接

// KlinePager 支持按时间游标向更早方向翻页的交易所
type KlinePager interface {
	// 获取beforeMs(毫秒时间戳)之前的K线，按时间升序返回
	GetKlineRecordsBefore(symbol string, size int, beforeMs int64) ([]model.Kline, error)
}

// 单页最大K线数，对齐OKX的限制
const historyBatchSize = 100

// FetchKlineHistory 拉取size根历史K线，按时间升序返回。
// 交易所支持游标翻页时分批拉取并向前拼接，否则退化为单次请求。
// 中途批次失败时返回已拿到的部分和汇总后的错误
func FetchKlineHistory(ex Exchange, symbol string, size int) ([]model.Kline, error) {
	pager, ok := ex.(KlinePager)
	if !ok {
		return ex.GetKlineRecords(symbol, size)
	}

	first := size
	if first > historyBatchSize {
		first = historyBatchSize
	}
	klines, err := ex.GetKlineRecords(symbol, first)
	if err != nil {
		return nil, err
	}

	var errs error
	for len(klines) > 0 && len(klines) < size {
		want := size - len(klines)
		if want > historyBatchSize {
			want = historyBatchSize
		}
		cursor := klines[0].Timestamp
		batch, err := pager.GetKlineRecordsBefore(symbol, want, cursor.UnixMilli())
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("kline batch before %s: %w", cursor, err))
			break
		}
		if len(batch) == 0 {
			// 已翻到历史起点
			break
		}
		klines = append(batch, klines...)
	}

	if len(klines) < size {
		logger.Warnf("历史K线不足: got=%d want=%d", len(klines), size)
	}
	return klines, errs
}
