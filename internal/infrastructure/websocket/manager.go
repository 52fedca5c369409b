package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"directchat/internal/infrastructure/metrics"
	"directchat/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
	sendBuffer     = 256
)

// EventHandler receives the lifecycle and inbound messages of every client.
type EventHandler interface {
	OnConnect(client *Client)
	OnMessage(client *Client, msg WSMessage)
	OnDisconnect(client *Client)
}

// Client is one websocket connection. A user may hold several.
type Client struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Manager tracks connected clients and the conversation rooms they joined.
type Manager struct {
	clients    map[string]map[*Client]struct{}
	rooms      map[string]map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	handler    EventHandler
	stopped    chan struct{}
	mutex      sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		stopped:    make(chan struct{}),
	}
}

func (m *Manager) SetHandler(h EventHandler) {
	m.handler = h
}

// Start runs the registration loop until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.add(client)
				metrics.IncWSActive()
				logger.Info("WebSocket: client %s registered for user %s", client.ID, client.UserID)
				if m.handler != nil {
					m.handler.OnConnect(client)
				}

			case client := <-m.Unregister:
				if m.remove(client) {
					metrics.DecWSActive()
					logger.Info("WebSocket: client %s unregistered for user %s", client.ID, client.UserID)
					if m.handler != nil {
						go m.handler.OnDisconnect(client)
					}
				}

			case <-ctx.Done():
				close(m.stopped)
				m.closeAll()
				return
			}
		}
	}()
}

func (m *Manager) unregister(c *Client) {
	select {
	case m.Unregister <- c:
	case <-m.stopped:
	}
}

func (m *Manager) add(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	set, ok := m.clients[client.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		m.clients[client.UserID] = set
	}
	set[client] = struct{}{}
}

func (m *Manager) remove(client *Client) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	set, ok := m.clients[client.UserID]
	if !ok {
		return false
	}
	if _, ok := set[client]; !ok {
		return false
	}
	delete(set, client)
	if len(set) == 0 {
		delete(m.clients, client.UserID)
	}
	for convID, members := range m.rooms {
		delete(members, client)
		if len(members) == 0 {
			delete(m.rooms, convID)
		}
	}
	client.close()
	return true
}

func (m *Manager) closeAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, set := range m.clients {
		for c := range set {
			c.close()
		}
	}
	m.clients = make(map[string]map[*Client]struct{})
	m.rooms = make(map[string]map[*Client]struct{})
}

func (m *Manager) JoinRoom(conversationID string, client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	members, ok := m.rooms[conversationID]
	if !ok {
		members = make(map[*Client]struct{})
		m.rooms[conversationID] = members
	}
	members[client] = struct{}{}
}

func (m *Manager) LeaveRoom(conversationID string, client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if members, ok := m.rooms[conversationID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(m.rooms, conversationID)
		}
	}
}

func (m *Manager) RoomSize(conversationID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms[conversationID])
}

func (m *Manager) IsOnline(userID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients[userID]) > 0
}

// BroadcastToRoomExcept delivers msg to every client in the room whose user is
// not exceptUserID. An empty exceptUserID reaches everyone.
func (m *Manager) BroadcastToRoomExcept(conversationID, exceptUserID string, msg WSMessage) {
	payload, err := encode(conversationID, msg)
	if err != nil {
		logger.Error("WebSocket: failed to encode %s: %v", msg.Type, err)
		return
	}

	m.mutex.RLock()
	targets := make([]*Client, 0, len(m.rooms[conversationID]))
	for c := range m.rooms[conversationID] {
		if exceptUserID == "" || c.UserID != exceptUserID {
			targets = append(targets, c)
		}
	}
	m.mutex.RUnlock()

	for _, c := range targets {
		m.deliver(c, payload)
	}
}

// SendToUser delivers msg to every connection of the user.
func (m *Manager) SendToUser(userID string, msg WSMessage) {
	payload, err := encode(msg.ChatID, msg)
	if err != nil {
		logger.Error("WebSocket: failed to encode %s: %v", msg.Type, err)
		return
	}

	m.mutex.RLock()
	targets := make([]*Client, 0, len(m.clients[userID]))
	for c := range m.clients[userID] {
		targets = append(targets, c)
	}
	m.mutex.RUnlock()

	for _, c := range targets {
		m.deliver(c, payload)
	}
}

func (m *Manager) SendToClient(client *Client, msg WSMessage) {
	payload, err := encode(msg.ChatID, msg)
	if err != nil {
		logger.Error("WebSocket: failed to encode %s: %v", msg.Type, err)
		return
	}
	m.deliver(client, payload)
}

func (m *Manager) SendError(client *Client, conversationID, message string) {
	m.SendToClient(client, WSMessage{
		Type:   MessageTypeError,
		ChatID: conversationID,
		Data:   map[string]string{"error": message},
	})
}

// deliver never blocks; a client whose buffer is full is dropped.
func (m *Manager) deliver(c *Client, payload []byte) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.Send <- payload:
	default:
		logger.Warn("WebSocket: client %s send buffer full, disconnecting", c.ID)
		go m.unregister(c)
	}
}

func encode(conversationID string, msg WSMessage) ([]byte, error) {
	if msg.ChatID == "" {
		msg.ChatID = conversationID
	}
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return json.Marshal(msg)
}

// ReadPump reads client frames until the connection fails, then unregisters the client.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket: read error for client %s: %v", c.ID, err)
			}
			return
		}
		m.HandleClientMessage(c, raw)
	}
}

// WritePump drains the send buffer and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("WebSocket: write error for client %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
