package domain

import "io"

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// PendingFile is a validated upload waiting to be stored.
type PendingFile struct {
	Kind      MediaKind
	Filename  string
	MimeType  string
	SizeBytes int64
	Data      io.Reader
}

// Media is a stored upload.
type Media struct {
	Path string
	Kind MediaKind
}
