package usecase

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"directchat/internal/domain/entity"
	"directchat/internal/domain/repository"
	"directchat/internal/infrastructure/ratelimit"
	ws "directchat/internal/infrastructure/websocket"
	"directchat/pkg/errors"
	"directchat/pkg/logger"
)

// RealtimeHub is the part of the websocket manager a session needs.
type RealtimeHub interface {
	Notifier
	JoinRoom(conversationID string, client *ws.Client)
	LeaveRoom(conversationID string, client *ws.Client)
	SendToClient(client *ws.Client, msg ws.WSMessage)
	SendError(client *ws.Client, conversationID, message string)
}

type conversationView struct {
	stream   *MessageStream
	statuses repository.Subscription
}

type session struct {
	client *ws.Client
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	views map[string]*conversationView
}

// SessionUseCase drives a websocket connection: presence heartbeat while
// connected, one message stream and read-status subscription per joined
// conversation, and typing indicators.
type SessionUseCase struct {
	hub         RealtimeHub
	feed        repository.ChangeFeed
	messages    *MessageUseCase
	reads       *ReadStatusUseCase
	presence    *PresenceUseCase
	typing      *TypingTracker
	rateLimiter *ratelimit.RateLimiter
	timeout     time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

func NewSessionUseCase(
	hub RealtimeHub,
	feed repository.ChangeFeed,
	messages *MessageUseCase,
	reads *ReadStatusUseCase,
	presence *PresenceUseCase,
	typing *TypingTracker,
	rateLimiter *ratelimit.RateLimiter,
	timeout time.Duration,
) *SessionUseCase {
	return &SessionUseCase{
		hub:         hub,
		feed:        feed,
		messages:    messages,
		reads:       reads,
		presence:    presence,
		typing:      typing,
		rateLimiter: rateLimiter,
		timeout:     timeout,
		sessions:    make(map[string]*session),
	}
}

var _ ws.EventHandler = (*SessionUseCase)(nil)

// BroadcastTyping is the TypingTracker sink: it reaches the other members of
// the conversation room.
func BroadcastTyping(hub Notifier) func(entity.TypingEvent) {
	return func(ev entity.TypingEvent) {
		hub.BroadcastToRoomExcept(ev.ConversationID, ev.UserID, ws.WSMessage{
			Type:   ws.MessageTypeTypingIndicator,
			ChatID: ev.ConversationID,
			Data: ws.TypingData{
				ChatID: ev.ConversationID,
				UserID: ev.UserID,
				Typing: ev.IsTyping,
			},
		})
	}
}

func (uc *SessionUseCase) OnConnect(client *ws.Client) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		client: client,
		ctx:    ctx,
		cancel: cancel,
		views:  make(map[string]*conversationView),
	}

	uc.mu.Lock()
	uc.sessions[client.ID] = s
	uc.mu.Unlock()

	go uc.presence.Heartbeat(ctx, client.UserID)
}

func (uc *SessionUseCase) OnDisconnect(client *ws.Client) {
	uc.mu.Lock()
	s, ok := uc.sessions[client.ID]
	delete(uc.sessions, client.ID)
	uc.mu.Unlock()
	if !ok {
		return
	}

	s.cancel()
	s.mu.Lock()
	views := s.views
	s.views = make(map[string]*conversationView)
	s.mu.Unlock()

	for convID, v := range views {
		v.close()
		uc.typing.Stop(convID, client.UserID)
	}
	logger.Debug("Session: client %s closed %d conversation views", client.ID, len(views))
}

func (uc *SessionUseCase) OnMessage(client *ws.Client, msg ws.WSMessage) {
	s := uc.session(client)
	if s == nil {
		uc.hub.SendError(client, msg.ChatID, "Session not established")
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, uc.timeout)
	defer cancel()

	var err error
	switch msg.Type {
	case ws.MessageTypeJoinConversation:
		err = uc.join(ctx, s, msg.ChatID)
	case ws.MessageTypeLeaveConversation:
		uc.leave(s, msg.ChatID)
	case ws.MessageTypeTyping:
		err = uc.keystroke(s, msg.ChatID)
	case ws.MessageTypeTypingStop:
		uc.typing.Stop(msg.ChatID, client.UserID)
	case ws.MessageTypeMarkRead:
		var data ws.MarkReadData
		if decodeErr := msg.DecodeData(&data); decodeErr != nil || data.MessageID == "" {
			err = errors.BadRequest("Missing message_id", decodeErr)
			break
		}
		_, err = uc.reads.MarkRead(ctx, client.UserID, msg.ChatID, data.MessageID)
	}

	if err != nil {
		logger.Warn("Session: %s from client %s failed: %v", msg.Type, client.ID, err)
		uc.hub.SendError(client, msg.ChatID, errorMessage(err))
	}
}

func (uc *SessionUseCase) session(client *ws.Client) *session {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.sessions[client.ID]
}

func (uc *SessionUseCase) join(ctx context.Context, s *session, conversationID string) error {
	client := s.client

	s.mu.Lock()
	existing, joined := s.views[conversationID]
	s.mu.Unlock()
	if joined {
		uc.sendHistory(client, conversationID, existing.stream.Messages())
		return nil
	}

	stream, err := OpenMessageStream(ctx, uc.feed, uc.messages, uc.reads, client.UserID, conversationID, StreamOptions{
		Lifetime: s.ctx,
		Timeout:  uc.timeout,
		OnChange: uc.streamPusher(client, conversationID),
	})
	if err != nil {
		return err
	}

	statuses, err := uc.feed.SubscribeStatuses(s.ctx, conversationID, func(entity.StatusEvent) {
		uc.pushStatuses(s, conversationID)
	})
	if err != nil {
		stream.Close()
		return err
	}

	view := &conversationView{stream: stream, statuses: statuses}
	s.mu.Lock()
	if _, raced := s.views[conversationID]; raced {
		s.mu.Unlock()
		view.close()
		return nil
	}
	s.views[conversationID] = view
	s.mu.Unlock()

	uc.hub.JoinRoom(conversationID, client)
	uc.sendHistory(client, conversationID, stream.Messages())
	uc.pushStatuses(s, conversationID)
	return nil
}

func (uc *SessionUseCase) leave(s *session, conversationID string) {
	s.mu.Lock()
	view, ok := s.views[conversationID]
	delete(s.views, conversationID)
	s.mu.Unlock()

	uc.hub.LeaveRoom(conversationID, s.client)
	uc.typing.Stop(conversationID, s.client.UserID)
	if ok {
		view.close()
	}
}

func (uc *SessionUseCase) keystroke(s *session, conversationID string) error {
	s.mu.Lock()
	_, joined := s.views[conversationID]
	s.mu.Unlock()
	if !joined {
		return errors.BadRequest("Join the conversation before typing", nil)
	}

	if allowed, _ := uc.rateLimiter.Allow(s.client.UserID, ratelimit.ActionTyping); !allowed {
		return nil
	}
	uc.typing.Keystroke(conversationID, s.client.UserID)
	return nil
}

func (uc *SessionUseCase) streamPusher(client *ws.Client, conversationID string) func(entity.ChangeKind, *entity.Message) {
	return func(kind entity.ChangeKind, msg *entity.Message) {
		out := ws.WSMessage{ChatID: conversationID}
		switch kind {
		case entity.ChangeInsert:
			out.Type, out.Data = ws.MessageTypeMessageInserted, msg
		case entity.ChangeUpdate:
			out.Type, out.Data = ws.MessageTypeMessageUpdated, msg
		case entity.ChangeDelete:
			out.Type, out.Data = ws.MessageTypeMessageDeleted, ws.MessageDeletedData{MessageID: msg.ID}
		case entity.ChangeResync:
			uc.mu.Lock()
			s := uc.sessions[client.ID]
			uc.mu.Unlock()
			if s == nil {
				return
			}
			s.mu.Lock()
			view := s.views[conversationID]
			s.mu.Unlock()
			if view == nil {
				return
			}
			out.Type, out.Data = ws.MessageTypeMessagesResynced, view.stream.Messages()
		default:
			return
		}
		uc.hub.SendToClient(client, out)
	}
}

func (uc *SessionUseCase) sendHistory(client *ws.Client, conversationID string, msgs []*entity.Message) {
	uc.hub.SendToClient(client, ws.WSMessage{
		Type:   ws.MessageTypeHistory,
		ChatID: conversationID,
		Data:   msgs,
	})
}

// pushStatuses re-reads the conversation's read statuses and sends them to the client.
func (uc *SessionUseCase) pushStatuses(s *session, conversationID string) {
	ctx, cancel := context.WithTimeout(s.ctx, uc.timeout)
	defer cancel()

	statuses, err := uc.reads.ListStatuses(ctx, s.client.UserID, conversationID)
	if err != nil {
		logger.Warn("Session: read statuses for %s: %v", conversationID, err)
		return
	}
	uc.hub.SendToClient(s.client, ws.WSMessage{
		Type:   ws.MessageTypeReadReceipt,
		ChatID: conversationID,
		Data:   statuses,
	})
}

// Close tears down every live session.
func (uc *SessionUseCase) Close() {
	uc.mu.Lock()
	clients := make([]*ws.Client, 0, len(uc.sessions))
	for _, s := range uc.sessions {
		clients = append(clients, s.client)
	}
	uc.mu.Unlock()

	for _, c := range clients {
		uc.OnDisconnect(c)
	}
}

func (v *conversationView) close() {
	v.stream.Close()
	if v.statuses != nil {
		v.statuses.Unsubscribe()
	}
}

func errorMessage(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return "Request failed"
}
