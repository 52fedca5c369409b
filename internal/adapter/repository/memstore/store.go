// Package memstore is an in-process backend implementing every repository,
// the change feed and the blob store. It backs STORAGE_BACKEND=memory and the
// stateful use case tests.
package memstore

import (
	"sync"

	"directchat/internal/domain/entity"
	"directchat/internal/domain/repository"
)

type Store struct {
	mu            sync.RWMutex
	conversations map[string]*entity.Conversation
	participants  map[string]*entity.Participant
	messages      map[string]*entity.Message
	statuses      map[string]*entity.MessageStatus
	profiles      map[string]*entity.Profile

	feed *Feed
}

func New() *Store {
	return &Store{
		conversations: make(map[string]*entity.Conversation),
		participants:  make(map[string]*entity.Participant),
		messages:      make(map[string]*entity.Message),
		statuses:      make(map[string]*entity.MessageStatus),
		profiles:      make(map[string]*entity.Profile),
		feed:          newFeed(),
	}
}

func (s *Store) Conversations() repository.ConversationRepository { return &conversationRepo{s} }
func (s *Store) Participants() repository.ParticipantRepository   { return &participantRepo{s} }
func (s *Store) Messages() repository.MessageRepository           { return &messageRepo{s} }
func (s *Store) Statuses() repository.MessageStatusRepository     { return &statusRepo{s} }
func (s *Store) Profiles() repository.ProfileRepository           { return &profileRepo{s} }
func (s *Store) Feed() repository.ChangeFeed                      { return s.feed }

// Close stops every live subscription.
func (s *Store) Close() error {
	s.feed.closeAll()
	return nil
}
