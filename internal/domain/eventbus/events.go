package eventbus

import "time"

// 事件类型定义
const (
	TopicSessionTransition = "vision:session:transition"
)

// TransitionEvent 单个流程的状态迁移
type TransitionEvent struct {
	SessionID string    `json:"session_id"`
	Flow      string    `json:"flow"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}
