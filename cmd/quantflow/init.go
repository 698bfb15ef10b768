package api

import (
	"quantflow/internal/dao"
	"quantflow/internal/handler/monitor"
	"quantflow/internal/handler/stream"
	"quantflow/internal/router"
)

// InitRouter 组装监控接口路由
func InitRouter(src monitor.EngineSource, d *dao.TradeDao, sh *stream.Handler) Router {
	mh := monitor.NewHandler(src, d)
	return router.NewApiRouter(mh, sh)
}
