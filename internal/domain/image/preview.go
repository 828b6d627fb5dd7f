package image

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	_ "image/jpeg"

	"golang.org/x/image/draw"

	"petvision-server-go/internal/platform/errors"
)

const (
	DefaultPreviewWidth = 200
	// DefaultMaxPixels 4096x4096
	DefaultMaxPixels int64 = 16777216
)

// Preview 生成宽度不超过 maxWidth 的 PNG 缩略图，宽高比保持不变。
// 先读图片头，像素数超过 maxPixels 时不做完整解码。
// 仅用于展示，失败不影响后续分析。
func Preview(upload *Upload, maxWidth int, maxPixels int64) ([]byte, error) {
	const op = "image.Preview"

	if upload == nil || len(upload.Bytes) == 0 {
		return nil, errors.New(errors.KindPrecondition, op, "no image selected")
	}
	if maxWidth <= 0 {
		maxWidth = DefaultPreviewWidth
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(upload.Bytes))
	if err != nil {
		return nil, errors.Wrap(errors.KindVision, op, "image cannot be decoded for preview", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errors.New(errors.KindVision, op, "image has no pixels")
	}
	if total := int64(cfg.Width) * int64(cfg.Height); total > maxPixels {
		return nil, errors.New(errors.KindValidation, op,
			fmt.Sprintf("pixel count exceeds limit: %dx%d (max %d pixels)", cfg.Width, cfg.Height, maxPixels))
	}

	src, _, err := image.Decode(bytes.NewReader(upload.Bytes))
	if err != nil {
		return nil, errors.Wrap(errors.KindVision, op, "image cannot be decoded for preview", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxWidth {
		h = max(1, h*maxWidth/w)
		w = maxWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var out bytes.Buffer
	if err := png.Encode(&out, dst); err != nil {
		return nil, errors.Wrap(errors.KindVision, op, "encode preview", err)
	}
	return out.Bytes(), nil
}
