package result

import (
	"net/http"

	"github.com/Nevern1y/Whity-sub000/consts"

	"github.com/gin-gonic/gin"
)

// Response 响应结构体
type Response struct {
	Code    int32       `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	TraceId string      `json:"trace_id"`
}

// Result 返回响应
// httpStatus 为真实 HTTP 状态码，业务码 code 放在响应体内。
func Result(c *gin.Context, httpStatus int, data interface{}, message string, code int32) {
	traceId := c.GetString("trace_id")
	if message == "" {
		message = consts.GetMessage(code)
	}
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Data:    data,
		TraceId: traceId,
	})
}

// Success 返回成功响应
func Success(c *gin.Context, data interface{}) {
	Result(c, http.StatusOK, data, "", consts.CodeSuccess)
}

// Created 返回创建成功响应
func Created(c *gin.Context, data interface{}) {
	Result(c, http.StatusCreated, data, "", consts.CodeSuccess)
}

// Fail 返回失败响应，HTTP 状态码由业务码推导
func Fail(c *gin.Context, code int32) {
	Result(c, consts.HTTPStatus(code), nil, "", code)
}

// FailWithMessage 返回失败响应并自定义消息
func FailWithMessage(c *gin.Context, message string, code int32) {
	Result(c, consts.HTTPStatus(code), nil, message, code)
}
