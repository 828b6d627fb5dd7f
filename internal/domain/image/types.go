package image

import "io"

// Format 是允许上传的图片格式，jpg 与 jpeg 统一归为 jpeg
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// Upload 上传的原始图片。字节按原样保留，不做任何转码。
type Upload struct {
	Bytes    []byte `json:"bytes"`
	Format   Format `json:"format"`
	Filename string `json:"filename"`
}

// Size returns the payload length in bytes.
func (u *Upload) Size() int {
	if u == nil {
		return 0
	}
	return len(u.Bytes)
}

// Input describes a streaming image payload.
type Input struct {
	Reader   io.Reader
	Filename string
	Source   string
}

// Metrics aggregates pipeline statistics for observability.
type Metrics struct {
	TotalProcessed    int64 `json:"total_processed"`
	RejectedFormat    int64 `json:"rejected_format"`
	RejectedSize      int64 `json:"rejected_size"`
	SignatureMismatch int64 `json:"signature_mismatch"`
}
