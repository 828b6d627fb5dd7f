package prompt

import (
	"fmt"
	"slices"

	"petvision-server-go/internal/domain/image"
	"petvision-server-go/internal/domain/inference"
	"petvision-server-go/internal/platform/errors"
)

const DefaultImageMIMEType = "image/jpeg"

// Assembler 把上传图片与流程模板组装成推理请求。不看图片内容。
type Assembler struct {
	mimeType   string
	generation inference.GenerationConfig
	safety     inference.SafetyPolicy
}

// NewAssembler builds an assembler that tags every image with mimeType,
// regardless of the uploaded format.
func NewAssembler(mimeType string, gen inference.GenerationConfig, safety inference.SafetyPolicy) *Assembler {
	if mimeType == "" {
		mimeType = DefaultImageMIMEType
	}
	return &Assembler{
		mimeType:   mimeType,
		generation: gen,
		safety:     slices.Clone(safety),
	}
}

// Assemble 没有图片时返回 precondition 错误，不构造请求
func (a *Assembler) Assemble(upload *image.Upload, flow Flow) (*inference.Request, error) {
	const op = "prompt.Assemble"

	if upload == nil || len(upload.Bytes) == 0 {
		return nil, errors.New(errors.KindPrecondition, op, "no image selected")
	}
	if !flow.Valid() {
		return nil, errors.New(errors.KindValidation, op, fmt.Sprintf("unknown flow %d", int(flow)))
	}

	return &inference.Request{
		Image: inference.ImagePart{
			MIMEType: a.mimeType,
			Data:     upload.Bytes,
		},
		Text:       flow.Template(),
		Generation: a.generation,
		Safety:     slices.Clone(a.safety),
	}, nil
}
