package monitor

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"quantflow/internal/dao"
	"quantflow/internal/model"
	"quantflow/pkg/response"
)

// 只读监控接口：当前状态、交易流水、资金曲线、运行摘要。
// 不提供任何下单入口，仓位只能由引擎自己变更

// EngineSource 引擎侧的状态快照来源
type EngineSource interface {
	Symbol() string
	Position() model.Position
	Account() model.Account
	RiskState() model.RiskState
	Trades() []model.TradeRecord
	EquitySamples() []model.EquitySample
}

type Handler struct {
	src EngineSource
	dao *dao.TradeDao // 可为nil，此时只提供内存数据
}

func NewHandler(src EngineSource, d *dao.TradeDao) *Handler {
	return &Handler{src: src, dao: d}
}

type statusResponse struct {
	Symbol   string          `json:"symbol"`
	Position model.Position  `json:"position"`
	Account  model.Account   `json:"account"`
	Risk     model.RiskState `json:"risk"`
}

// StatusGet 当前仓位、资金和风控状态
func (h *Handler) StatusGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.JSON(c, nil, statusResponse{
			Symbol:   h.src.Symbol(),
			Position: h.src.Position(),
			Account:  h.src.Account(),
			Risk:     h.src.RiskState(),
		})
	}
}

// TradesGet 交易流水，limit限制返回条数，0表示不限制
func (h *Handler) TradesGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := cast.ToInt(c.Query("limit"))

		if h.dao != nil {
			trades, err := h.dao.ListTrades(c, h.src.Symbol(), limit)
			if err != nil {
				response.JSON(c, err, nil)
				return
			}
			response.JSON(c, nil, trades)
			return
		}

		trades := h.src.Trades()
		if limit > 0 && len(trades) > limit {
			trades = trades[len(trades)-limit:]
		}
		response.JSON(c, nil, trades)
	}
}

// EquityGet 资金曲线采样点
func (h *Handler) EquityGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := cast.ToInt(c.Query("limit"))

		if h.dao != nil {
			samples, err := h.dao.ListEquity(c, h.src.Symbol(), limit)
			if err != nil {
				response.JSON(c, err, nil)
				return
			}
			response.JSON(c, nil, samples)
			return
		}

		samples := h.src.EquitySamples()
		if limit > 0 && len(samples) > limit {
			samples = samples[len(samples)-limit:]
		}
		response.JSON(c, nil, samples)
	}
}

// SummaryGet 最近一次运行摘要，需要数据库支持
func (h *Handler) SummaryGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.dao == nil {
			response.NotFound(c, "未配置数据库，无运行摘要")
			return
		}
		summary, err := h.dao.LastSummary(c, h.src.Symbol())
		if err != nil {
			response.JSON(c, err, nil)
			return
		}
		response.JSON(c, nil, summary)
	}
}
