package image

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"petvision-server-go/internal/platform/config"
	"petvision-server-go/internal/platform/errors"
	"petvision-server-go/internal/utils"
)

const defaultMaxFileSize = 10 * 1024 * 1024

// Pipeline 读取上传流，按扩展名白名单判定格式，保留原始字节
type Pipeline struct {
	validator *FormatValidator
	logger    *utils.Logger
	security  *config.SecurityConfig
	metrics   Metrics
}

// Options configures the pipeline behaviour.
type Options struct {
	Security *config.SecurityConfig
	Logger   *utils.Logger
}

// NewPipeline constructs an upload pipeline.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Security == nil {
		return nil, errors.New(errors.KindConfig, "image.NewPipeline", "security config is required")
	}
	if opts.Logger == nil {
		opts.Logger = utils.DefaultLogger
	}

	return &Pipeline{
		validator: NewFormatValidator(opts.Security.AllowedFormats, opts.Security.VerifySignature),
		logger:    opts.Logger,
		security:  opts.Security,
	}, nil
}

// Process 读取整个上传流。超过 max_file_size 的上传被拒绝，内容本身不做校验。
func (p *Pipeline) Process(ctx context.Context, input Input) (*Upload, error) {
	const op = "image.Pipeline.Process"

	if input.Reader == nil {
		return nil, errors.New(errors.KindValidation, op, "image reader is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	format, err := p.validator.FormatFor(input.Filename)
	if err != nil {
		atomic.AddInt64(&p.metrics.RejectedFormat, 1)
		p.logger.WarnTag("视觉", "拒绝上传 source=%s file=%s: %v", input.Source, input.Filename, err)
		return nil, err
	}

	maxSize := p.security.MaxFileSize
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}
	limited := &io.LimitedReader{R: input.Reader, N: maxSize + 1}

	buf := bytes.NewBuffer(make([]byte, 0, 32*1024))
	if _, err := io.Copy(buf, limited); err != nil {
		return nil, errors.Wrap(errors.KindVision, op, "stream image bytes", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.KindVision, op, "upload cancelled", err)
	}
	if limited.N <= 0 {
		atomic.AddInt64(&p.metrics.RejectedSize, 1)
		return nil, errors.New(errors.KindValidation, op,
			fmt.Sprintf("image exceeds maximum size of %d bytes", maxSize))
	}
	if buf.Len() == 0 {
		return nil, errors.New(errors.KindValidation, op, "empty image payload")
	}

	raw := buf.Bytes()
	if err := p.validator.CheckSignature(raw, format); err != nil {
		atomic.AddInt64(&p.metrics.SignatureMismatch, 1)
		p.logger.WarnTag("视觉", "文件头不匹配 file=%s: %v", input.Filename, err)
		return nil, err
	}

	atomic.AddInt64(&p.metrics.TotalProcessed, 1)
	p.logger.DebugTag("视觉", "接收图片 file=%s format=%s size=%d", input.Filename, format, len(raw))

	return &Upload{
		Bytes:    raw,
		Format:   format,
		Filename: input.Filename,
	}, nil
}

// Metrics returns a snapshot of the pipeline counters.
func (p *Pipeline) Metrics() Metrics {
	return Metrics{
		TotalProcessed:    atomic.LoadInt64(&p.metrics.TotalProcessed),
		RejectedFormat:    atomic.LoadInt64(&p.metrics.RejectedFormat),
		RejectedSize:      atomic.LoadInt64(&p.metrics.RejectedSize),
		SignatureMismatch: atomic.LoadInt64(&p.metrics.SignatureMismatch),
	}
}
