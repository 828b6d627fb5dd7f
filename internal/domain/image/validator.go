package image

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"petvision-server-go/internal/platform/errors"
)

var imageSignatures = map[Format][]byte{
	FormatJPEG: {0xFF, 0xD8, 0xFF},
	FormatPNG:  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
}

// FormatValidator 按扩展名白名单判定格式，可选校验文件头
type FormatValidator struct {
	allowed         map[string]Format
	verifySignature bool
}

// NewFormatValidator builds a validator for the given extension allow-list.
// Only png, jpg and jpeg are understood; anything else in the list is ignored.
func NewFormatValidator(allowedFormats []string, verifySignature bool) *FormatValidator {
	if len(allowedFormats) == 0 {
		allowedFormats = []string{"png", "jpg", "jpeg"}
	}
	allowed := make(map[string]Format, len(allowedFormats))
	for _, ext := range allowedFormats {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if f, ok := normalise(ext); ok {
			allowed[ext] = f
		}
	}
	return &FormatValidator{allowed: allowed, verifySignature: verifySignature}
}

func normalise(ext string) (Format, bool) {
	switch ext {
	case "png":
		return FormatPNG, true
	case "jpg", "jpeg":
		return FormatJPEG, true
	default:
		return "", false
	}
}

// FormatFor 根据文件名扩展名返回格式
func (v *FormatValidator) FormatFor(filename string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return "", errors.New(errors.KindValidation, "image.FormatFor",
			fmt.Sprintf("file %q has no extension, allowed: %s", filename, v.allowedList()))
	}
	f, ok := v.allowed[ext]
	if !ok {
		return "", errors.New(errors.KindValidation, "image.FormatFor",
			fmt.Sprintf("unsupported format %q, allowed: %s", ext, v.allowedList()))
	}
	return f, nil
}

// CheckSignature 仅在开启 verify_signature 时比对文件头
func (v *FormatValidator) CheckSignature(raw []byte, format Format) error {
	if !v.verifySignature {
		return nil
	}
	signature := imageSignatures[format]
	if len(raw) < len(signature) || !bytes.Equal(signature, raw[:len(signature)]) {
		header := fmt.Sprintf("%x", raw[:min(len(raw), 8)])
		return errors.New(errors.KindValidation, "image.CheckSignature",
			fmt.Sprintf("file content does not look like %s (header %s)", format, header))
	}
	return nil
}

func (v *FormatValidator) allowedList() string {
	exts := make([]string, 0, len(v.allowed))
	for _, ext := range []string{"png", "jpg", "jpeg"} {
		if _, ok := v.allowed[ext]; ok {
			exts = append(exts, ext)
		}
	}
	return strings.Join(exts, ", ")
}
