package usecase

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"directchat/internal/adapter/repository/memstore"
	"directchat/internal/domain/entity"
	"directchat/internal/mocks"
	"directchat/pkg/errors"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func TestUploadRejectsEmptyFileWithoutWriting(t *testing.T) {
	blobs := new(mocks.BlobStoreMock)
	attachments := NewAttachmentUseCase(blobs, 1<<20)

	cases := map[string]*entity.AttachmentFile{
		"nil file":  nil,
		"zero size": {Name: "empty.txt", Size: 0, Body: strings.NewReader("")},
		"no body":   {Name: "ghost.txt", Size: 10},
	}
	for name, file := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := attachments.Upload(context.Background(), "c1", file)
			assert.True(t, errors.Is(err, errors.CodeEmptyFile))
		})
	}
	blobs.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	blobs := new(mocks.BlobStoreMock)
	attachments := NewAttachmentUseCase(blobs, 8)

	_, err := attachments.Upload(context.Background(), "c1", &entity.AttachmentFile{
		Name: "big.bin", Size: 9, Body: bytes.NewReader(make([]byte, 9)),
	})
	assert.True(t, errors.Is(err, errors.CodeInvalidContent))
	blobs.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadSniffsMissingContentType(t *testing.T) {
	blobs := memstore.NewBlobStore("https://blobs.test")
	attachments := NewAttachmentUseCase(blobs, 1<<20)

	body := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{1}, 4000)...)
	stored, err := attachments.Upload(context.Background(), "c1", &entity.AttachmentFile{
		Name: "clipboard",
		Size: int64(len(body)),
		Body: bytes.NewReader(body),
	})
	require.NoError(t, err)

	assert.Equal(t, "image/png", stored.ContentType)
	assert.True(t, strings.HasPrefix(stored.StoragePath, "c1/"))
	assert.True(t, strings.HasSuffix(stored.StoragePath, ".png"))
	assert.Equal(t, "https://blobs.test/"+stored.StoragePath, stored.PublicURL)

	obj, ok := blobs.Object(stored.StoragePath)
	require.True(t, ok)
	assert.Equal(t, body, obj.Data, "sniffed bytes must still be uploaded")
}

func TestUploadErrorIsReported(t *testing.T) {
	blobs := new(mocks.BlobStoreMock)
	blobs.On("Upload", mock.Anything, mock.MatchedBy(func(path string) bool {
		return strings.HasPrefix(path, "c1/") && strings.HasSuffix(path, ".txt")
	}), mock.Anything, "text/plain").Return(assert.AnError).Once()

	attachments := NewAttachmentUseCase(blobs, 1<<20)
	_, err := attachments.Upload(context.Background(), "c1", &entity.AttachmentFile{
		Name: "a.txt", ContentType: "text/plain", Size: 1, Body: strings.NewReader("a"),
	})

	assert.True(t, errors.Is(err, errors.CodeUpload))
	blobs.AssertExpectations(t)
}

func TestUploadPathsAreUnique(t *testing.T) {
	blobs := memstore.NewBlobStore("https://blobs.test")
	attachments := NewAttachmentUseCase(blobs, 1<<20)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		stored, err := attachments.Upload(context.Background(), "c1", &entity.AttachmentFile{
			Name: "same.txt", ContentType: "text/plain", Size: 1, Body: strings.NewReader("x"),
		})
		require.NoError(t, err)
		assert.False(t, seen[stored.StoragePath])
		seen[stored.StoragePath] = true
	}
	assert.Equal(t, 20, blobs.Len())
}

func TestFileExtension(t *testing.T) {
	assert.Equal(t, "jpg", fileExtension("Photo.JPG", "image/jpeg"))
	assert.Equal(t, "pdf", fileExtension("report", "application/pdf"))
	assert.Equal(t, "bin", fileExtension("", "application/x-unknown-thing"))
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestUploadUnreadableBody(t *testing.T) {
	blobs := new(mocks.BlobStoreMock)
	attachments := NewAttachmentUseCase(blobs, 1<<20)

	_, err := attachments.Upload(context.Background(), "c1", &entity.AttachmentFile{Name: "x", Size: 3, Body: errReader{}})
	assert.True(t, errors.Is(err, errors.CodeUpload))
	blobs.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
