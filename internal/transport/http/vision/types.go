package vision

import (
	"time"

	"petvision-server-go/internal/domain/analysis"
	"petvision-server-go/internal/domain/image"
	"petvision-server-go/internal/domain/prompt"
	"petvision-server-go/internal/domain/session"
)

// FlowView 导航与页面文案
type FlowView struct {
	ID          string `json:"id"`
	NavLabel    string `json:"nav_label"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle,omitempty"`
	UploadLabel string `json:"upload_label"`
	ButtonLabel string `json:"button_label"`
}

func newFlowView(d prompt.Descriptor) FlowView {
	return FlowView{
		ID:          d.ID,
		NavLabel:    d.NavLabel,
		Title:       d.Title,
		Subtitle:    d.Subtitle,
		UploadLabel: d.UploadLabel,
		ButtonLabel: d.ButtonLabel,
	}
}

// UploadResult 上传成功后的返回
type UploadResult struct {
	Flow     string        `json:"flow"`
	State    session.State `json:"state"`
	Format   image.Format  `json:"format"`
	Size     int           `json:"size"`
	Filename string        `json:"filename,omitempty"`
}

// StateView 会话在某个流程下的状态，不含图片字节
type StateView struct {
	Flow         string                `json:"flow"`
	State        session.State         `json:"state"`
	HasImage     bool                  `json:"has_image"`
	Format       image.Format          `json:"format,omitempty"`
	Size         int                   `json:"size,omitempty"`
	Filename     string                `json:"filename,omitempty"`
	Result       analysis.Presentation `json:"result"`
	ErrorMessage string                `json:"error_message,omitempty"`
	UpdatedAt    *time.Time            `json:"updated_at,omitempty"`
}

func newStateView(flow prompt.Flow, rec session.Record) StateView {
	view := StateView{
		Flow:         flow.String(),
		State:        rec.State,
		HasImage:     rec.HasImage(),
		Result:       analysis.PresentRecord(flow, rec),
		ErrorMessage: rec.ErrorMessage,
	}
	if rec.Upload != nil {
		view.Format = rec.Upload.Format
		view.Size = rec.Upload.Size()
		view.Filename = rec.Upload.Filename
	}
	if !rec.UpdatedAt.IsZero() {
		ts := rec.UpdatedAt
		view.UpdatedAt = &ts
	}
	return view
}
