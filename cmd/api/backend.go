package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"google.golang.org/api/option"

	apimiddleware "directchat/internal/adapter/api/middleware"
	"directchat/internal/adapter/repository"
	"directchat/internal/adapter/repository/memstore"
	domainrepo "directchat/internal/domain/repository"
	"directchat/internal/domain/service"
	"directchat/internal/infrastructure/firebase"
	"directchat/internal/infrastructure/storage"
	"directchat/pkg/config"
	"directchat/pkg/logger"
)

// backend bundles the storage-facing dependencies selected by STORAGE_BACKEND.
type backend struct {
	conversations domainrepo.ConversationRepository
	participants  domainrepo.ParticipantRepository
	messages      domainrepo.MessageRepository
	statuses      domainrepo.MessageStatusRepository
	profiles      domainrepo.ProfileRepository
	feed          domainrepo.ChangeFeed
	blobs         service.BlobStore
	verifier      apimiddleware.TokenVerifier

	// routes mounts backend specific endpoints, if any.
	routes  func(e *echo.Echo)
	closers []func() error
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			logger.Warn("Error closing backend: %v", err)
		}
	}
}

func newBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return newMemoryBackend(cfg), nil
	case config.BackendFirestore, "":
		return newFirestoreBackend(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func credentials(cfg *config.Config) (option.ClientOption, error) {
	if cfg.ServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)), nil
	}

	if _, err := os.Stat(cfg.ServiceAccountPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("service account file does not exist: %s", cfg.ServiceAccountPath)
	}
	logger.Info("Using Firebase service account from file: %s", cfg.ServiceAccountPath)
	return option.WithCredentialsFile(cfg.ServiceAccountPath), nil
}

func newFirestoreBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	opt, err := credentials(cfg)
	if err != nil {
		return nil, err
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase: %w", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase Auth: %w", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, opt)
	if err != nil {
		firestoreClient.Close()
		return nil, fmt.Errorf("failed to initialize Cloud Storage: %w", err)
	}

	return &backend{
		conversations: repository.NewFirestoreConversationRepository(firestoreClient),
		participants:  repository.NewFirestoreParticipantRepository(firestoreClient),
		messages:      repository.NewFirestoreMessageRepository(firestoreClient),
		statuses:      repository.NewFirestoreMessageStatusRepository(firestoreClient),
		profiles:      repository.NewFirestoreProfileRepository(firestoreClient),
		feed:          repository.NewFirestoreChangeFeed(firestoreClient),
		blobs:         storageClient,
		verifier:      firebase.NewFirebaseAuthClient(authClient),
		routes:        func(*echo.Echo) {},
		closers:       []func() error{firestoreClient.Close, storageClient.Close},
	}, nil
}

// newMemoryBackend runs everything in process and accepts "dev:<uid>" tokens.
// Uploaded objects are served back under /blobs.
func newMemoryBackend(cfg *config.Config) *backend {
	logger.Warn("Using in-memory storage backend; data is lost on restart")

	store := memstore.New()
	blobs := memstore.NewBlobStore("http://localhost:" + cfg.ServerPort + "/blobs")

	return &backend{
		conversations: store.Conversations(),
		participants:  store.Participants(),
		messages:      store.Messages(),
		statuses:      store.Statuses(),
		profiles:      store.Profiles(),
		feed:          store.Feed(),
		blobs:         blobs,
		verifier:      firebase.DevTokenVerifier{},
		routes: func(e *echo.Echo) {
			e.GET("/blobs/*", serveBlob(blobs))
		},
		closers: []func() error{store.Close},
	}
}

func serveBlob(blobs *memstore.BlobStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		obj, ok := blobs.Object(strings.TrimPrefix(c.Param("*"), "/"))
		if !ok {
			return c.NoContent(http.StatusNotFound)
		}
		return c.Blob(http.StatusOK, obj.ContentType, obj.Data)
	}
}
