package validation

import (
	"fmt"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/itchan-dev/schan/internal/domain"
)

const (
	ImageField = "image"
	VideoField = "video"
)

var (
	imageExtensions = map[string]bool{".jpeg": true, ".jpg": true, ".png": true, ".gif": true, ".webp": true}
	imageMimeTypes  = map[string]bool{"image/jpeg": true, "image/jpg": true, "image/png": true, "image/gif": true, "image/webp": true}
	videoExtensions = map[string]bool{".mp4": true, ".webm": true}
	videoMimeTypes  = map[string]bool{"video/mp4": true, "video/webm": true}
)

// Uploads are the validated files of a post form. Call Close when done.
type Uploads struct {
	Image *domain.PendingFile
	Video *domain.PendingFile

	closers []multipart.File
}

func (u *Uploads) Close() {
	for _, c := range u.closers {
		c.Close()
	}
	u.closers = nil
}

// ValidateUploads checks every file of a parsed multipart form. Only one image and one video are accepted,
// each must match its field by extension and declared content type and stay below maxFileSize.
func ValidateUploads(form *multipart.Form, maxFileSize int64) (*Uploads, error) {
	uploads := &Uploads{}
	if form == nil {
		return uploads, nil
	}

	for field, headers := range form.File {
		if field != ImageField && field != VideoField {
			return nil, fmt.Errorf("%w: %s", ErrUnexpectedField, field)
		}
		if len(headers) > 1 {
			return nil, fmt.Errorf("%w: only one file is allowed for the %s field", ErrTooManyAttachments, field)
		}
	}

	for _, field := range []string{ImageField, VideoField} {
		headers := form.File[field]
		if len(headers) == 0 {
			continue
		}
		pending, err := validateFile(headers[0], domain.MediaKind(field), maxFileSize)
		if err != nil {
			uploads.Close()
			return nil, err
		}
		uploads.closers = append(uploads.closers, pending.Data.(multipart.File))
		if field == ImageField {
			uploads.Image = pending
		} else {
			uploads.Video = pending
		}
	}

	return uploads, nil
}

func validateFile(header *multipart.FileHeader, kind domain.MediaKind, maxFileSize int64) (*domain.PendingFile, error) {
	if header.Size > maxFileSize {
		return nil, fmt.Errorf("%w: %s exceeds the limit of %.0f MB", ErrPayloadTooLarge, header.Filename, FormatSizeMB(maxFileSize))
	}

	mimeType := DetectMimeType(header)
	if !AllowedType(kind, filepath.Ext(header.Filename), mimeType) {
		return nil, fmt.Errorf("%w: only %s files are allowed for the %s field", ErrInvalidMimeType, kind, kind)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}

	return &domain.PendingFile{
		Kind:      kind,
		Filename:  header.Filename,
		MimeType:  mimeType,
		SizeBytes: header.Size,
		Data:      file,
	}, nil
}

// AllowedType reports whether both the extension and the mime type are accepted for kind.
func AllowedType(kind domain.MediaKind, ext, mimeType string) bool {
	ext = strings.ToLower(ext)
	switch kind {
	case domain.MediaImage:
		return imageExtensions[ext] && imageMimeTypes[mimeType]
	case domain.MediaVideo:
		return videoExtensions[ext] && videoMimeTypes[mimeType]
	default:
		return false
	}
}

// DetectMimeType returns the declared content type without parameters, lowercased.
func DetectMimeType(header *multipart.FileHeader) string {
	declared := header.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(declared))
	}
	return strings.ToLower(mediaType)
}
