// Package api serves run status, metrics and live pool events over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"workpool/internal/demo"
	"workpool/internal/events"
	"workpool/internal/logger"
	"workpool/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"
)

// Options はサーバーが参照する観測対象
type Options struct {
	Driver   *demo.Driver
	Metrics  *metrics.Metrics
	Events   *events.Bus
	Gatherer prometheus.Gatherer // nil なら prometheus.DefaultGatherer
}

// Server はAPIサーバー
type Server struct {
	addr     string
	driver   *demo.Driver
	stats    *metrics.Metrics
	bus      *events.Bus
	gatherer prometheus.Gatherer

	mu        sync.RWMutex
	wsClients map[*websocket.Conn]bool

	server *http.Server
}

// NewServer は新しいAPIサーバーを作成する
func NewServer(addr string, opts Options) *Server {
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		addr:      addr,
		driver:    opts.Driver,
		stats:     opts.Metrics,
		bus:       opts.Events,
		gatherer:  gatherer,
		wsClients: make(map[*websocket.Conn]bool),
	}
}

// Handler はルーティング済みのハンドラーを返す
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))

	return mux
}

// Start はサーバーを開始する。ctx がキャンセルされるまでブロックする
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.broadcastLoop(ctx)
	go s.forwardEvents(ctx)

	logger.Info("", "API Server starting on http://%s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StatusResponse はステータスレスポンス
type StatusResponse struct {
	Time     time.Time      `json:"time"`
	Config   *demo.Config   `json:"config,omitempty"`
	Progress *demo.Progress `json:"progress,omitempty"`
}

func (s *Server) status() StatusResponse {
	resp := StatusResponse{Time: time.Now()}
	if s.driver != nil {
		cfg := s.driver.Config()
		progress := s.driver.Progress()
		resp.Config = &cfg
		resp.Progress = &progress
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.status())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.stats == nil {
		http.Error(w, "Metrics not configured", http.StatusNotFound)
		return
	}
	s.writeJSON(w, s.stats.Snapshot())
}

// WebSocket handling
func (s *Server) handleWebSocket(ws *websocket.Conn) {
	s.mu.Lock()
	s.wsClients[ws] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.wsClients, ws)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	// クライアントが切断するまで接続を維持
	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			break
		}
	}
}

// ClientCount は接続中の WebSocket クライアント数を返す
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wsClients)
}

// Message は WebSocket で送る 1 メッセージ
type Message struct {
	Type   string          `json:"type"`
	Event  *events.Event   `json:"event,omitempty"`
	Status *StatusResponse `json:"status,omitempty"`
}

func (s *Server) broadcast(msg Message) {
	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.wsClients))
	for ws := range s.wsClients {
		clients = append(clients, ws)
	}
	s.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("", "Failed to encode message: %v", err)
		return
	}
	for _, ws := range clients {
		_ = websocket.Message.Send(ws, string(data))
	}
}

// forwardEvents はバスのイベントを WebSocket クライアントへ転送する
func (s *Server) forwardEvents(ctx context.Context) {
	if s.bus == nil {
		return
	}
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			s.broadcast(Message{Type: "event", Event: &e})
		}
	}
}

// broadcastLoop は実行中の進捗を 1 秒ごとに配信する
func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.driver == nil || !s.driver.Progress().Running {
				continue
			}
			status := s.status()
			s.broadcast(Message{Type: "status", Status: &status})
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("", "Failed to encode JSON: %v", err)
	}
}
