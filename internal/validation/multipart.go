package validation

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrPayloadTooLarge    = errors.New("payload too large")
	ErrInvalidMimeType    = errors.New("invalid file type")
	ErrTooManyAttachments = errors.New("too many attachments")
	ErrUnexpectedField    = errors.New("unexpected field")
)

// attachmentsPerPost is one image plus one video.
const attachmentsPerPost = 2

// ValidateAndParseMultipart parses the multipart form of r, reading at most maxSize bytes.
// Past the limit the server stops reading and closes the connection.
func ValidateAndParseMultipart(r *http.Request, w http.ResponseWriter, maxSize int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	err := r.ParseMultipartForm(maxSize)
	if err == nil {
		return nil
	}
	// some multipart paths flatten the error to its text
	if tooLarge := new(http.MaxBytesError); errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return fmt.Errorf("%w: body exceeds %d bytes", ErrPayloadTooLarge, maxSize)
	}
	return fmt.Errorf("failed to parse multipart form: %w", err)
}

// CalculateMaxRequestSize is the body limit of a post: every attachment at full size
// plus bufferSize for the text fields and multipart framing.
func CalculateMaxRequestSize(maxAttachmentSize, bufferSize int64) int64 {
	return attachmentsPerPost*maxAttachmentSize + bufferSize
}

// FormatSizeMB converts bytes to megabytes for error messages.
func FormatSizeMB(bytes int64) float64 {
	return float64(bytes) / (1 << 20)
}
