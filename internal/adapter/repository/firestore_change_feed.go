package repository

import (
	"context"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"directchat/internal/domain/entity"
	"directchat/internal/domain/repository"
	"directchat/pkg/errors"
	"directchat/pkg/logger"
)

// FirestoreChangeFeed turns Firestore query listeners into message and status
// change events. A broken listener is re-established with exponential backoff
// and the full current result set is delivered as a resync event.
type FirestoreChangeFeed struct {
	client     *firestore.Client
	newBackOff func() backoff.BackOff
}

func NewFirestoreChangeFeed(client *firestore.Client) *FirestoreChangeFeed {
	return &FirestoreChangeFeed{
		client: client,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 0
			return b
		},
	}
}

var _ repository.ChangeFeed = (*FirestoreChangeFeed)(nil)

type snapshotSubscription struct {
	cancel context.CancelFunc
	once   sync.Once
}

func (s *snapshotSubscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

func (f *FirestoreChangeFeed) SubscribeMessages(ctx context.Context, conversationID string, handler func(entity.MessageEvent)) (repository.Subscription, error) {
	q := messagesQuery(f.client, conversationID)

	onChanges := func(changes []firestore.DocumentChange) {
		for _, ch := range changes {
			msg, err := decodeMessage(ch.Doc)
			if err != nil {
				logger.Warn("Message feed: skipping undecodable document %s: %v", ch.Doc.Ref.ID, err)
				continue
			}
			handler(entity.MessageEvent{
				Kind:      changeKind(ch.Kind),
				MessageID: msg.ID,
				Message:   msg,
			})
		}
	}
	onResync := func(docs []*firestore.DocumentSnapshot) {
		snapshot := make([]*entity.Message, 0, len(docs))
		for _, doc := range docs {
			if msg, err := decodeMessage(doc); err == nil {
				snapshot = append(snapshot, msg)
			}
		}
		handler(entity.MessageEvent{Kind: entity.ChangeResync, Snapshot: snapshot})
	}

	return f.watch(ctx, q, "messages:"+conversationID, onChanges, onResync)
}

func (f *FirestoreChangeFeed) SubscribeStatuses(ctx context.Context, conversationID string, handler func(entity.StatusEvent)) (repository.Subscription, error) {
	q := f.client.Collection(messageStatusCollection).Where("conversationId", "==", conversationID)

	onChanges := func(changes []firestore.DocumentChange) {
		for _, ch := range changes {
			var st entity.MessageStatus
			if err := ch.Doc.DataTo(&st); err != nil {
				continue
			}
			handler(entity.StatusEvent{Kind: changeKind(ch.Kind), Status: &st})
		}
	}
	onResync := func([]*firestore.DocumentSnapshot) {
		handler(entity.StatusEvent{Kind: entity.ChangeResync})
	}

	return f.watch(ctx, q, "statuses:"+conversationID, onChanges, onResync)
}

func (f *FirestoreChangeFeed) watch(
	ctx context.Context,
	q firestore.Query,
	name string,
	onChanges func([]firestore.DocumentChange),
	onResync func([]*firestore.DocumentSnapshot),
) (repository.Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)

	it := q.Snapshots(subCtx)
	// The first snapshot is the current state, which callers load themselves.
	if _, err := it.Next(); err != nil {
		it.Stop()
		cancel()
		return nil, errors.Query("Failed to subscribe to "+name, err)
	}

	go func() {
		for {
			snap, err := it.Next()
			if err == nil {
				onChanges(snap.Changes)
				continue
			}

			it.Stop()
			if subCtx.Err() != nil || status.Code(err) == codes.Canceled {
				return
			}
			logger.Warn("Change feed %s interrupted, reconnecting: %v", name, err)

			var docs []*firestore.DocumentSnapshot
			reconnect := func() error {
				next := q.Snapshots(subCtx)
				first, err := next.Next()
				if err != nil {
					next.Stop()
					return err
				}
				all, err := first.Documents.GetAll()
				if err != nil {
					next.Stop()
					return err
				}
				it, docs = next, all
				return nil
			}
			notify := func(err error, _ time.Duration) {
				logger.Debug("Change feed %s reconnect failed: %v", name, err)
			}
			if err := backoff.RetryNotify(reconnect, backoff.WithContext(f.newBackOff(), subCtx), notify); err != nil {
				return
			}
			onResync(docs)
		}
	}()

	return &snapshotSubscription{cancel: cancel}, nil
}

func changeKind(k firestore.DocumentChangeKind) entity.ChangeKind {
	switch k {
	case firestore.DocumentAdded:
		return entity.ChangeInsert
	case firestore.DocumentRemoved:
		return entity.ChangeDelete
	default:
		return entity.ChangeUpdate
	}
}
