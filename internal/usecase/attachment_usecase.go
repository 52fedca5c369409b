package usecase

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"directchat/internal/domain/entity"
	"directchat/internal/domain/service"
	"directchat/internal/infrastructure/metrics"
	"directchat/internal/infrastructure/telemetry"
	"directchat/pkg/errors"
	"directchat/pkg/logger"
)

const sniffLen = 3072

type AttachmentUseCase struct {
	blobs    service.BlobStore
	maxBytes int64
	now      Clock
}

func NewAttachmentUseCase(blobs service.BlobStore, maxBytes int64) *AttachmentUseCase {
	return &AttachmentUseCase{
		blobs:    blobs,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// Upload stores file under {conversationID}/{unixMillis}-{random}.{ext} and
// returns its public URL. Empty files are rejected before any write; failed
// uploads are not retried.
func (uc *AttachmentUseCase) Upload(ctx context.Context, conversationID string, file *entity.AttachmentFile) (*entity.StoredAttachment, error) {
	if file == nil || file.Size <= 0 || file.Body == nil {
		name := ""
		if file != nil {
			name = file.Name
		}
		return nil, errors.EmptyFile(name)
	}
	if uc.maxBytes > 0 && file.Size > uc.maxBytes {
		return nil, errors.InvalidContent(fmt.Sprintf("file exceeds the %d byte limit", uc.maxBytes))
	}

	ctx, span := telemetry.StartSpan(ctx, "attachment.upload", "conversation_id", conversationID)
	defer span.End()

	body, contentType, err := detectContentType(file)
	if err != nil {
		metrics.ObserveUpload(false, 0)
		return nil, errors.Upload("Failed to read attachment", err)
	}

	path := fmt.Sprintf("%s/%d-%s.%s", conversationID, uc.now().UnixMilli(), randomToken(), fileExtension(file.Name, contentType))

	if err := uc.blobs.Upload(ctx, path, body, contentType); err != nil {
		metrics.ObserveUpload(false, 0)
		span.RecordError(err)
		logger.Error("Upload Error: conversation %s path %s: %v", conversationID, path, err)
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) && appErr.Code == errors.CodeUpload {
			return nil, appErr
		}
		return nil, errors.Upload("Failed to upload attachment", err)
	}
	metrics.ObserveUpload(true, file.Size)

	return &entity.StoredAttachment{
		PublicURL:   uc.blobs.PublicURL(path),
		StoragePath: path,
		ContentType: contentType,
	}, nil
}

// Remove deletes stored objects. Missing objects are not an error.
func (uc *AttachmentUseCase) Remove(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	return uc.blobs.Remove(ctx, paths)
}

// detectContentType trusts a declared type unless it is missing or generic, in
// which case the first bytes of the body are sniffed.
func detectContentType(file *entity.AttachmentFile) (io.Reader, string, error) {
	declared := strings.TrimSpace(file.ContentType)
	if declared != "" && declared != "application/octet-stream" {
		return file.Body, declared, nil
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, "", err
	}
	head = head[:n]

	mtype := mimetype.Detect(head)
	return io.MultiReader(bytes.NewReader(head), file.Body), mtype.String(), nil
}

func fileExtension(name, contentType string) string {
	if ext := strings.TrimPrefix(filepath.Ext(name), "."); ext != "" {
		return strings.ToLower(ext)
	}
	if m := mimetype.Lookup(strings.Split(contentType, ";")[0]); m != nil && m.Extension() != "" {
		return strings.TrimPrefix(m.Extension(), ".")
	}
	return "bin"
}

func randomToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}
