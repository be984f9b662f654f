package ws

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var ErrNotConnected = errors.New("not connected")

// Client wraps a connection so concurrent senders never interleave frames.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) SendJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// Manager keeps track of active websocket connections by key (a device id,
// or a tenant/user pair for dashboards).
type Manager struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewManager() *Manager {
	return &Manager{clients: make(map[string]map[*Client]struct{})}
}

// Register adds a connection under key next to any existing ones.
func (m *Manager) Register(key string, conn *websocket.Conn) *Client {
	c := &Client{conn: conn}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clients[key] == nil {
		m.clients[key] = make(map[*Client]struct{})
	}
	m.clients[key][c] = struct{}{}
	return c
}

// RegisterExclusive registers a connection, closing any existing ones for key.
func (m *Manager) RegisterExclusive(key string, conn *websocket.Conn) *Client {
	c := &Client{conn: conn}
	m.mu.Lock()
	defer m.mu.Unlock()
	for old := range m.clients[key] {
		// close old connection to avoid leaks
		_ = old.conn.Close()
	}
	m.clients[key] = map[*Client]struct{}{c: {}}
	return c
}

// Unregister removes and closes one connection.
func (m *Manager) Unregister(key string, c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.clients[key]
	if !ok {
		return
	}
	if _, ok := set[c]; ok {
		_ = c.conn.Close()
		delete(set, c)
	}
	if len(set) == 0 {
		delete(m.clients, key)
	}
}

// Send writes payload to every connection under key.
func (m *Manager) Send(key string, payload []byte) error {
	m.mu.RLock()
	targets := make([]*Client, 0, len(m.clients[key]))
	for c := range m.clients[key] {
		targets = append(targets, c)
	}
	m.mu.RUnlock()
	if len(targets) == 0 {
		return ErrNotConnected
	}

	var errs []error
	for _, c := range targets {
		if err := c.Send(payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IsConnected returns whether key has at least one live connection.
func (m *Manager) IsConnected(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[key]) > 0
}

// List returns the connected keys in sorted order.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.clients))
	for k := range m.clients {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
