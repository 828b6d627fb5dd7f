package eventbus

import (
	evbus "github.com/asaskevich/EventBus"
)

// Publisher 只需发布能力的调用方使用
type Publisher interface {
	Publish(topic string, args ...interface{})
}

// New 创建新的同步事件总线
func New() evbus.Bus {
	return evbus.New()
}

// PublishTransition 发布状态迁移事件，publisher 为空时忽略
func PublishTransition(p Publisher, evt TransitionEvent) {
	if p == nil {
		return
	}
	p.Publish(TopicSessionTransition, evt)
}
