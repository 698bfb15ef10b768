package ecode

// 错误码定义，0表示成功

const (
	Success = 0

	// 通用
	InternalErr  = 10001 // 内部错误
	InvalidInput = 10002 // 参数无效（价格、信号、比例非法）
	NotFound     = 10003

	// 交易核心
	InsufficientFunds   = 20001 // 现金不足以支付手续费
	PositionExists      = 20002 // 已有仓位
	NoPosition          = 20003 // 无仓位可平
	ExchangeSyncDrift   = 20004 // 本地仓位与交易所不一致
	CollaboratorFailure = 20005 // 外部协作方调用失败（降级处理）
	EntryBlocked        = 20006 // 交易频率风控拦截
)

var messages = map[int]string{
	Success:             "ok",
	InternalErr:         "internal error",
	InvalidInput:        "invalid input",
	NotFound:            "not found",
	InsufficientFunds:   "insufficient funds for fee",
	PositionExists:      "position already open",
	NoPosition:          "no open position",
	ExchangeSyncDrift:   "local position drifted from exchange",
	CollaboratorFailure: "external collaborator failed",
	EntryBlocked:        "entry blocked by trade governor",
}

// Message 返回错误码的默认描述
func Message(code int) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[InternalErr]
}
