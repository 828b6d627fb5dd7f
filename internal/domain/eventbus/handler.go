package eventbus

import (
	"sync"

	evbus "github.com/asaskevich/EventBus"

	"petvision-server-go/internal/utils"
)

// TransitionLogger 记录每一次状态迁移
type TransitionLogger struct {
	logger *utils.Logger
}

func NewTransitionLogger(logger *utils.Logger) *TransitionLogger {
	return &TransitionLogger{logger: logger}
}

func (h *TransitionLogger) Handle(evt TransitionEvent) {
	if evt.Detail != "" {
		h.logger.InfoTag("视觉", "会话状态 session=%s flow=%s %s -> %s (%s)",
			shortID(evt.SessionID), evt.Flow, evt.From, evt.To, evt.Detail)
		return
	}
	h.logger.InfoTag("视觉", "会话状态 session=%s flow=%s %s -> %s",
		shortID(evt.SessionID), evt.Flow, evt.From, evt.To)
}

// TransitionCounter 按目标状态统计迁移次数，供健康检查展示
type TransitionCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewTransitionCounter() *TransitionCounter {
	return &TransitionCounter{counts: make(map[string]int64)}
}

func (c *TransitionCounter) Handle(evt TransitionEvent) {
	c.mu.Lock()
	c.counts[evt.To]++
	c.mu.Unlock()
}

// Snapshot returns a copy of the counters.
func (c *TransitionCounter) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// SetupEventHandlers 订阅状态迁移事件
func SetupEventHandlers(bus evbus.Bus, logger *utils.Logger, counter *TransitionCounter) error {
	if err := bus.Subscribe(TopicSessionTransition, NewTransitionLogger(logger).Handle); err != nil {
		return err
	}
	if counter != nil {
		if err := bus.Subscribe(TopicSessionTransition, counter.Handle); err != nil {
			return err
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
