package consts

import "time"

const (
	// RequestId 请求id名称
	RequestId = "request_id"

	DateLayout   = "2006-01-02"
	TimeLayout   = "2006-01-02 15:04:05"
	TimeLayoutMs = "2006-01-02 15:04:05.000"

	// 默认redis过期时间
	RedisExrDefault = time.Hour * 24 * 5

	// 风控状态在redis中的key前缀
	RiskStatePrefix = "quantflow:risk_state:"

	// kafka交易流水topic
	KafkaTradeTopic = "trade_events"
)
