package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"rummy-server/internal/rummy"
	"rummy-server/internal/store"
)

type Server struct {
	port              int
	documents         store.DocumentStore
	pg                *store.Postgres // nil when running on the memory store
	game              *rummy.Service
	lobbyManager      *LobbyManager
	sessionManager    *SessionManager
	connectionManager *ConnectionManager
	limiter           *RateLimiter

	mu       sync.Mutex
	gameSubs map[string]func() // gameID → unsubscribe
}

// NewServer wires the store, engine and managers and returns both the
// custom server (for shutdown) and the configured http.Server.
func NewServer() (*Server, *http.Server) {
	port, _ := strconv.Atoi(os.Getenv("PORT"))
	if port == 0 {
		port = 8080
	}

	var documents store.DocumentStore
	var pg *store.Postgres

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Println("DATABASE_URL not set, running on the in-memory store (state is lost on restart)")
		documents = store.NewMemory()
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var err error
		pg, err = store.NewPostgres(ctx, databaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to prepare database schema: %v", err)
		}
		documents = pg
	}

	s := &Server{
		port:              port,
		documents:         documents,
		pg:                pg,
		game:              rummy.NewService(documents),
		lobbyManager:      NewLobbyManager(),
		sessionManager:    NewSessionManager(),
		connectionManager: NewConnectionManager(),
		limiter:           NewRateLimiter(10, time.Second),
		gameSubs:          make(map[string]func()),
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, httpServer
}

// Shutdown releases game subscriptions and the database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for gameID, cancel := range s.gameSubs {
		cancel()
		delete(s.gameSubs, gameID)
	}
	s.mu.Unlock()

	if s.pg != nil {
		s.pg.Close()
	}
	return nil
}

func (s *Server) trackGameSubscription(gameID string, cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.gameSubs[gameID]; ok {
		old()
	}
	s.gameSubs[gameID] = cancel
}

func (s *Server) dropGameSubscription(gameID string) {
	s.mu.Lock()
	cancel, ok := s.gameSubs[gameID]
	delete(s.gameSubs, gameID)
	s.mu.Unlock()

	if ok {
		cancel()
	}
}
