// Package monitor serves local observability endpoints: Prometheus
// metrics, a health probe and a websocket feed that streams each published
// mission status to connected ground-station clients.
package monitor

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skyaid/missionengine/internal/types"
)

type Server struct {
	addr  string
	inbox chan types.Message

	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func New(addr string) *Server {
	return &Server{
		addr:  addr,
		inbox: make(chan types.Message, 32),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: map[*websocket.Conn]bool{},
	}
}

func (s *Server) Receive(message types.Message) {
	if message.MessageType != types.MessageTypeStatus {
		return
	}
	// Latest-value semantics: drop when the feed is behind.
	select {
	case s.inbox <- message:
	default:
	}
}

func (s *Server) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", s.handleWS)

	server := &http.Server{Addr: s.addr, Handler: mux}
	go func() {
		log.Printf("Monitor listening on %s", s.addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Monitor server failed: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Println("Monitor shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
			s.closeAll()
			return
		case msg := <-s.inbox:
			s.broadcast(msg.Message)
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Websocket upgrade failed: %v", err)
		return
	}

	s.mu.Lock()
	s.conns[conn] = true
	s.mu.Unlock()
	log.Printf("Monitor client connected: %s", conn.RemoteAddr())

	// Drain reads so close frames are processed; clients only listen.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.drop(conn)
				return
			}
		}
	}()
}

func (s *Server) broadcast(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(s.conns, conn)
		}
	}
}

func (s *Server) drop(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns[conn] {
		conn.Close()
		delete(s.conns, conn)
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
	s.conns = map[*websocket.Conn]bool{}
}
