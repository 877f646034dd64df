// Package server provides HTTP server initialization and lifecycle management
// for the Aftercare chat API.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/carebridge/aftercare/internal/config"
	"github.com/carebridge/aftercare/internal/patients"
	"github.com/carebridge/aftercare/internal/session"
	"github.com/carebridge/aftercare/internal/storage"
	"github.com/carebridge/aftercare/web/handlers"
)

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Deps carries the wired collaborators the server exposes over HTTP.
type Deps struct {
	Sessions  *session.Manager
	Store     storage.KnowledgeStore
	Directory *patients.Directory
	Model     string
}

// Start initializes and starts the HTTP server.
// Returns the actual address being listened on (useful for testing with
// port 0) and the WebSocketHub for wiring turn event broadcasts. The server
// shuts down gracefully when ctx is cancelled.
func Start(ctx context.Context, cfg *config.Config, deps Deps) (string, *handlers.WebSocketHub, error) {
	wsHub := handlers.NewWebSocketHub()
	go wsHub.Run()

	chatHandlers := handlers.NewChatHandlers(deps.Sessions, wsHub)
	patientHandlers := handlers.NewPatientHandlers(deps.Directory)
	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Directory, deps.Model)

	// API routes (require auth in production mode)
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/chat/start", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			chatHandlers.StartChat(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/chat/message", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			chatHandlers.PostMessage(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/chat/history/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			chatHandlers.GetHistory(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/chat/session/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			chatHandlers.EndSession(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/patients", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			patientHandlers.ListPatients(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/patients/{name}", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			patientHandlers.GetPatient(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/health", healthHandler.GetHealth)

	mux := http.NewServeMux()
	mux.Handle("/api/", handlers.RequireAuth(apiMux, cfg.Security))

	// WebSocket endpoint (no auth required, same-origin validated on upgrade)
	mux.Handle("/ws", wsHub)

	// Wrap entire server with rate limiting, then security headers
	rateLimiter := handlers.NewRateLimiter(10.0, 20)
	handler := handlers.RateLimitMiddleware(mux, rateLimiter)
	handler = securityHeadersMiddleware(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		wsHub.Stop()
	}()

	log.Printf("Aftercare API listening on %s", actualAddr)
	return actualAddr, wsHub, nil
}
