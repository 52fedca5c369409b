package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"directchat/internal/domain/service"
	"directchat/pkg/errors"
	"directchat/pkg/logger"
)

type CloudStorageClient struct {
	client     *storage.Client
	bucketName string
}

func NewCloudStorageClient(ctx context.Context, bucketName string, opts ...option.ClientOption) (*CloudStorageClient, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	c := &CloudStorageClient{
		client:     client,
		bucketName: bucketName,
	}

	if err := c.setBucketCORS(ctx); err != nil {
		logger.Warn("Failed to set CORS configuration on bucket %s: %v", bucketName, err)
	}

	return c, nil
}

var _ service.BlobStore = (*CloudStorageClient)(nil)

func (c *CloudStorageClient) setBucketCORS(ctx context.Context) error {
	bucket := c.client.Bucket(c.bucketName)

	attrs, err := bucket.Attrs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bucket attributes: %v", err)
	}
	if len(attrs.CORS) > 0 {
		return nil
	}

	_, err = bucket.Update(ctx, storage.BucketAttrsToUpdate{
		CORS: []storage.CORS{{
			MaxAge:          3600,
			Methods:         []string{"GET", "HEAD"},
			Origins:         []string{"*"},
			ResponseHeaders: []string{"Content-Type"},
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to update bucket CORS: %v", err)
	}
	return nil
}

// Upload writes a new object at path. Existing objects are never overwritten.
func (c *CloudStorageClient) Upload(ctx context.Context, path string, body io.Reader, contentType string) error {
	obj := c.client.Bucket(c.bucketName).Object(path).If(storage.Conditions{DoesNotExist: true})

	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=3600"

	if _, err := io.Copy(wc, body); err != nil {
		wc.Close()
		return errors.Upload("Failed to upload attachment", err)
	}
	if err := wc.Close(); err != nil {
		var gerr *googleapi.Error
		if stderrors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return errors.Upload("Attachment object already exists", err)
		}
		return errors.Upload("Failed to upload attachment", err)
	}

	if err := c.client.Bucket(c.bucketName).Object(path).ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return errors.Upload("Failed to publish attachment", err)
	}

	return nil
}

func (c *CloudStorageClient) PublicURL(path string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucketName, path)
}

func (c *CloudStorageClient) Remove(ctx context.Context, paths []string) error {
	bucket := c.client.Bucket(c.bucketName)
	for _, p := range paths {
		if err := bucket.Object(p).Delete(ctx); err != nil && !stderrors.Is(err, storage.ErrObjectNotExist) {
			return errors.Internal("Failed to delete attachment", err)
		}
	}
	return nil
}

func (c *CloudStorageClient) Close() error {
	return c.client.Close()
}
