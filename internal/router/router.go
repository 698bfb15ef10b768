package router

import (
	"github.com/gin-gonic/gin"

	"quantflow/internal/handler/monitor"
	"quantflow/internal/handler/ping"
	"quantflow/internal/handler/stream"
	"quantflow/internal/middleware"
)

type ApiRouter struct {
	monitorHandler *monitor.Handler
	streamHandler  *stream.Handler
}

func NewApiRouter(mh *monitor.Handler, sh *stream.Handler) *ApiRouter {
	return &ApiRouter{monitorHandler: mh, streamHandler: sh}
}

func (api *ApiRouter) Load(g *gin.Engine) {
	g.GET("/ping", ping.Ping())

	base := g.Group("/api/v1")

	m := base.Group("/monitor", middleware.NoCache())
	{
		// 当前仓位、资金和风控状态
		m.GET("/status", api.monitorHandler.StatusGet())
		m.GET("/trades", api.monitorHandler.TradesGet())
		m.GET("/equity", api.monitorHandler.EquityGet())
		m.GET("/summary", api.monitorHandler.SummaryGet())
	}

	s := base.Group("/stream")
	{
		s.GET("/ws", api.streamHandler.ServeWS) // 通过websocket接收实时流水和状态
	}
}
