package server

import (
	"github.com/gorilla/websocket"

	"skirmish/state"
)

// CloseCode WebSocket 关闭帧里的状态码。
// 应用自定义码位于 4000-4999 私有区间
type CloseCode int

const (
	CloseNormal    CloseCode = websocket.CloseNormalClosure
	CloseGoingAway CloseCode = websocket.CloseGoingAway

	CloseAlreadyExists    CloseCode = 4000
	CloseInvalidMessage   CloseCode = 4001
	CloseNotAllowedAction CloseCode = 4002
	CloseUnknownAction    CloseCode = 4003
)

func (c CloseCode) String() string {
	switch c {
	case CloseNormal:
		return "NORMAL"
	case CloseGoingAway:
		return "GOING_AWAY"
	case CloseAlreadyExists:
		return "ALREADY_EXISTS"
	case CloseInvalidMessage:
		return "INVALID_MESSAGE"
	case CloseNotAllowedAction:
		return "NOT_ALLOWED_ACTION"
	case CloseUnknownAction:
		return "UNKNOWN_ACTION"
	}
	return "UNKNOWN"
}

// closeCodeFor 把被拒消息的原因映射为断开连接用的关闭码
func closeCodeFor(v state.Violation) CloseCode {
	switch v {
	case state.NotAllowedAction:
		return CloseNotAllowedAction
	case state.UnknownAction:
		return CloseUnknownAction
	}
	return CloseInvalidMessage
}
