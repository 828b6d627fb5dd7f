package analysis

import (
	"petvision-server-go/internal/domain/inference"
	"petvision-server-go/internal/domain/prompt"
	"petvision-server-go/internal/domain/session"
)

// Presentation 结果区内容。Empty 时标题与正文都为空，界面不显示任何内容。
type Presentation struct {
	Flow    string `json:"flow"`
	Heading string `json:"heading,omitempty"`
	Body    string `json:"body,omitempty"`
	Empty   bool   `json:"empty"`
}

// Present 原样展示模型文本，不截断不转换
func Present(flow prompt.Flow, resp *inference.Response) Presentation {
	if resp.Empty() {
		return Presentation{Flow: flow.String(), Empty: true}
	}
	return Presentation{
		Flow:    flow.String(),
		Heading: flow.Descriptor().Heading,
		Body:    resp.Text,
	}
}

// PresentRecord 根据已保存的状态重建结果区，仅 completed 状态有内容
func PresentRecord(flow prompt.Flow, rec session.Record) Presentation {
	if rec.State != session.StateCompleted {
		return Presentation{Flow: flow.String(), Empty: true}
	}
	return Present(flow, &inference.Response{Text: rec.ResultText})
}
