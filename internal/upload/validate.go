// Package upload validates and stores article images.
package upload

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/starford/gaceta/internal/apperr"
)

// Disallowed image format. Browsers in the newsroom cannot render it.
const (
	avifMIME = "image/avif"
	avifExt  = ".avif"
)

// File is an image received from the editor.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Validate rejects files in the disallowed format, judged by declared MIME
// type, file extension (any case) or sniffed content. It never touches the
// network.
func Validate(f File) error {
	declared := strings.ToLower(strings.TrimSpace(f.ContentType))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	switch {
	case declared == avifMIME:
		return fmt.Errorf("%w: %s declared as %s", apperr.ErrUnsupportedFormat, f.Name, declared)
	case strings.EqualFold(filepath.Ext(f.Name), avifExt):
		return fmt.Errorf("%w: %s", apperr.ErrUnsupportedFormat, f.Name)
	}
	if len(f.Data) > 0 && mimetype.Detect(f.Data).Is(avifMIME) {
		return fmt.Errorf("%w: %s has AVIF content", apperr.ErrUnsupportedFormat, f.Name)
	}
	return nil
}

// DetectContentType sniffs the image type, preferring the declared one when
// sniffing is inconclusive.
func DetectContentType(f File) string {
	if len(f.Data) > 0 {
		if mt := mimetype.Detect(f.Data); mt.String() != "application/octet-stream" {
			return mt.String()
		}
	}
	if f.ContentType != "" {
		return f.ContentType
	}
	return "application/octet-stream"
}
