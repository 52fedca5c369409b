package repository

import (
	"sort"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"directchat/internal/domain/entity"
)

const (
	conversationsCollection = "conversations"
	participantsCollection  = "conversation_participants"
	messagesCollection      = "messages"
	messageStatusCollection = "message_status"
	profilesCollection      = "profiles"
)

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func sortProfilesByUsername(profiles []*entity.Profile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].Username < profiles[j].Username
	})
}
