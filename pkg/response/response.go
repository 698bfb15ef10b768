package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"quantflow/internal/consts"
	"quantflow/pkg/errors"
	"quantflow/pkg/errors/ecode"
)

// 响应给客户端的消息结构，包括错误码，错误信息，响应数据
type ApiResponse struct {
	RequestId string      `json:"request_id"` // 请求的唯一ID
	Code      int         `json:"code"`       // 错误码 0表示无错误
	Message   string      `json:"message"`    // 提示信息
	Data      interface{} `json:"data"`       // 响应数据
}

// 发送json格式数据
func JSON(c *gin.Context, err error, data interface{}) {
	code, message := errors.DecodeErr(err)
	// code != 0 时返回http 400，比统一返回200更严谨
	var httpStatus int
	if code != ecode.Success {
		httpStatus = http.StatusBadRequest
	} else {
		httpStatus = http.StatusOK
	}
	c.JSON(httpStatus, ApiResponse{
		RequestId: c.GetString(consts.RequestId),
		Code:      code,
		Message:   message,
		Data:      data,
	})
}

// NotFound 资源不存在，返回404
func NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, ApiResponse{
		RequestId: c.GetString(consts.RequestId),
		Code:      ecode.NotFound,
		Message:   message,
		Data:      nil,
	})
}
