package upload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/gaceta/internal/apperr"
)

// Recorder receives the URL of every successful upload.
type Recorder interface {
	RecordUpload(url string) bool
}

// Service validates files before handing them to an Uploader.
type Service struct {
	uploader Uploader
	maxBytes int64
	logger   *slog.Logger
}

// NewService creates an upload service. maxBytes <= 0 disables the size
// limit.
func NewService(uploader Uploader, maxBytes int64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{uploader: uploader, maxBytes: maxBytes, logger: logger}
}

// Handle validates f, uploads it and records the resulting URL. A rejected
// or failed upload leaves rec untouched.
func (s *Service) Handle(ctx context.Context, rec Recorder, f File, progress func(int)) (string, error) {
	if err := Validate(f); err != nil {
		s.logger.Info("upload rejected", slog.String("file", f.Name), slog.String("error", err.Error()))
		return "", err
	}
	if s.maxBytes > 0 && int64(len(f.Data)) > s.maxBytes {
		return "", &apperr.ValidationError{Fields: map[string]string{
			"file": fmt.Sprintf("%s is %d bytes, the limit is %d", f.Name, len(f.Data), s.maxBytes),
		}}
	}
	url, err := s.uploader.Upload(ctx, f, progress)
	if err != nil {
		s.logger.Error("upload failed", slog.String("file", f.Name), slog.String("error", err.Error()))
		return "", err
	}
	rec.RecordUpload(url)
	s.logger.Info("image uploaded", slog.String("file", f.Name), slog.String("url", url))
	return url, nil
}
