package session

import (
	"time"

	"petvision-server-go/internal/domain/image"
)

// State 单个流程的交互状态
type State string

const (
	StateIdle          State = "idle"
	StateImageSelected State = "image_selected"
	StateSubmitted     State = "submitted"
	StateCompleted     State = "completed"
	StateFaulted       State = "faulted"
)

// Record 某个浏览器会话在某个流程下的状态，按 sessionID:flow 隔离
type Record struct {
	SessionID    string        `json:"session_id"`
	Flow         string        `json:"flow"`
	State        State         `json:"state"`
	Upload       *image.Upload `json:"upload,omitempty"`
	ResultText   string        `json:"result_text,omitempty"`
	ResultEmpty  bool          `json:"result_empty,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	ExpiresAt    *time.Time    `json:"expires_at,omitempty"`
}

// Key 存储键
func Key(sessionID, flow string) string {
	return sessionID + ":" + flow
}

func (r Record) Key() string {
	return Key(r.SessionID, r.Flow)
}

// Expired reports whether the record is past its expiry at now.
func (r Record) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// HasImage 是否持有一张可提交的图片
func (r Record) HasImage() bool {
	return r.Upload != nil && len(r.Upload.Bytes) > 0
}

// clone 复制记录本身，图片字节只读共享
func (r Record) clone() Record {
	if r.Upload != nil {
		up := *r.Upload
		r.Upload = &up
	}
	if r.ExpiresAt != nil {
		exp := *r.ExpiresAt
		r.ExpiresAt = &exp
	}
	return r
}

// stamp 写入前刷新时间戳，过期时间按 ttl 滑动
func (r *Record) stamp(now time.Time, ttl time.Duration) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	if ttl > 0 {
		exp := now.Add(ttl)
		r.ExpiresAt = &exp
	}
}
