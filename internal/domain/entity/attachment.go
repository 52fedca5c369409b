package entity

import "io"

// AttachmentFile is a binary payload submitted with an image, file or audio message.
type AttachmentFile struct {
	Name        string
	ContentType string
	Size        int64
	Duration    float64
	Body        io.Reader
}

type StoredAttachment struct {
	PublicURL   string `json:"public_url"`
	StoragePath string `json:"storage_path"`
	ContentType string `json:"content_type"`
}
