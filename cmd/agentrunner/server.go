package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/agentrunner/internal/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildServeCmd starts an HTTP server exposing the Event Bus over SSE at
// /events and accepting queries at /query.
func buildServeCmd(configPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the agent over HTTP, streaming its Event Bus via SSE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			rt, err := newRuntime(cfg, slog.Default())
			if err != nil {
				return fmt.Errorf("initialize runtime: %w", err)
			}
			defer rt.Close()

			srv := newServer(rt)
			slog.Info("serving", "addr", cfg.Server.Addr)
			return http.ListenAndServe(cfg.Server.Addr, srv.mux())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config server.addr)")
	return cmd
}

// server exposes the runtime over HTTP: a query endpoint and an SSE
// event stream fed by a goroutine reading Bus.Subscribe.
type server struct {
	rt *runtime
}

func newServer(rt *runtime) *server {
	return &server{rt: rt}
}

func (s *server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/events", s.handleEvents)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

type queryRequest struct {
	Text string `json:"text"`
}

type queryResponse struct {
	Response string `json:"response"`
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	response, err := s.rt.Query(r.Context(), req.Text)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(queryResponse{Response: response})
}

// handleEvents streams the Event Bus to one SSE client at a time, one "data: <json>\n\n" line per event.
func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	stream := s.rt.bus.Subscribe(ctx, 0)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-stream:
			if !ok {
				return
			}
			payload, err := json.Marshal(sseEvent{
				ID:        event.ID,
				EventType: event.SSEType(),
				Timestamp: event.Timestamp,
				Data:      event.Data,
				Metadata:  event.Metadata,
			})
			if err != nil {
				slog.Warn("failed to marshal event for SSE", "error", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// sseEvent is the wire shape for one SSE line: {id, event_type,
// timestamp, data, metadata}.
type sseEvent struct {
	ID        string         `json:"id"`
	EventType string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
	Metadata  map[string]any `json:"metadata"`
}
