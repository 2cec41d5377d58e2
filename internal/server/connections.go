package server

import (
	"sync"

	"github.com/coder/websocket"
)

type ConnectionManager struct {
	connections map[string]*websocket.Conn // connectionID → socket
	tokens      map[string]string          // connectionID → token
	byToken     map[string]string          // token → connectionID
	mu          sync.RWMutex
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
		tokens:      make(map[string]string),
		byToken:     make(map[string]string),
	}
}

func (cm *ConnectionManager) AddConnection(id string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[id] = conn
}

// BindToken associates an authenticated session token with a live
// connection. Returns the id of any previous connection holding the
// same token, so the caller can evict it.
func (cm *ConnectionManager) BindToken(connectionID, token string) (oldConnectionID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	old := cm.byToken[token]
	if old == connectionID {
		old = ""
	}
	if prev, ok := cm.tokens[connectionID]; ok && prev != token {
		delete(cm.byToken, prev)
	}
	cm.tokens[connectionID] = token
	cm.byToken[token] = connectionID
	return old
}

func (cm *ConnectionManager) RemoveConnection(id string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if token, ok := cm.tokens[id]; ok && cm.byToken[token] == id {
		delete(cm.byToken, token)
	}
	delete(cm.tokens, id)
	delete(cm.connections, id)
}

func (cm *ConnectionManager) GetTokenByConnection(connectionID string) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.tokens[connectionID]
}

func (cm *ConnectionManager) GetConnectionByToken(token string) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.byToken[token]
}

func (cm *ConnectionManager) GetConnection(connectionID string) *websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.connections[connectionID]
}
