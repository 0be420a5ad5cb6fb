// Package devbackend is an in-memory radio backend for developing and
// exercising carradio without the game server. It speaks the same action and
// push protocol: POST /<resource>/<action> changes state, and every change is
// pushed to websocket clients on /push.
package devbackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/five82/carradio/internal/discovery"
	"github.com/five82/carradio/internal/logging"
)

const (
	maxBodyBytes    = 64 * 1024
	shutdownTimeout = 5 * time.Second
)

// Options configure a dev backend.
type Options struct {
	Addr     string
	Resource string
	Announce bool
	Instance string
}

// Server wires the radio state, push hub and HTTP routes together.
// publishMu is held from a state change until its messages are queued, and
// from taking a snapshot until the new client is registered, so every client
// sees changes in the order they were made.
type Server struct {
	resource  string
	radio     *Radio
	hub       *Hub
	publishMu sync.Mutex
}

// NewServer returns a server answering actions under resource.
func NewServer(resource string) *Server {
	return &Server{resource: resource, radio: NewRadio(), hub: NewHub()}
}

// Radio exposes the backing state, mainly for tests.
func (s *Server) Radio() *Radio { return s.radio }

// Hub exposes the push hub, mainly for tests.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the CORS-wrapped router.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/push", s.handlePush).Methods("GET")
	router.HandleFunc("/_dev/ui", s.handleDevUI).Methods("POST")
	router.HandleFunc("/{resource}/{action}", s.handleAction).Methods("POST")
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithError("not found", http.StatusNotFound, w)
	})
	return cors.Default().Handler(router)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if vars["resource"] != s.resource {
		respondWithError(fmt.Sprintf("unknown resource %q", vars["resource"]), http.StatusNotFound, w)
		return
	}
	action := vars["action"]

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondWithError("could not read body", http.StatusBadRequest, w)
		return
	}

	msgs, err := s.apply(action, body)
	var actErr *actionError
	switch {
	case errors.Is(err, errUnknownAction):
		logging.Warnf("dev backend: %v", err)
		respondWithError(err.Error(), http.StatusNotFound, w)
		return
	case errors.As(err, &actErr):
		logging.Warnf("dev backend: %s rejected: %s", action, actErr.Reason)
		respondWithError(actErr.Reason, actErr.Status, w)
		return
	case err != nil:
		respondWithError(err.Error(), http.StatusInternalServerError, w)
		return
	}

	logging.Infof("dev backend: %s applied, pushed %d message(s) to %d client(s)", action, len(msgs), s.hub.Count())
	respondWithJSON(map[string]any{"ok": true}, http.StatusOK, w)
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	c, err := s.hub.upgrade(w, r)
	if err != nil {
		logging.Warnf("push upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	s.subscribe(c)
	logging.Infof("push client %s connected from %s", c.ID, r.RemoteAddr)
	s.hub.run(c)
}

func (s *Server) apply(action string, body []byte) ([][]byte, error) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	msgs, err := s.radio.Apply(action, body)
	if err != nil {
		return nil, err
	}
	s.hub.Broadcast(msgs...)
	return msgs, nil
}

func (s *Server) setDisplay(display bool) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	s.hub.Broadcast(s.radio.SetDisplay(display)...)
}

func (s *Server) subscribe(c *pushClient) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	s.hub.attach(c, s.radio.Snapshot())
}

// handleDevUI toggles overlay visibility, standing in for the in-game key
// that opens the radio. Accepts ?display=true or {"display":true}.
func (s *Server) handleDevUI(w http.ResponseWriter, r *http.Request) {
	display := true
	if raw := r.URL.Query().Get("display"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError("display must be a boolean", http.StatusBadRequest, w)
			return
		}
		display = v
	} else {
		var body struct {
			Display *bool `json:"display"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err == nil && body.Display != nil {
			display = *body.Display
		}
	}
	s.setDisplay(display)
	respondWithJSON(map[string]any{"ok": true, "display": display}, http.StatusOK, w)
}

func respondWithJSON(m any, statusCode int, w http.ResponseWriter) {
	payload, _ := json.Marshal(m)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(payload)
}

func respondWithError(reason string, statusCode int, w http.ResponseWriter) {
	respondWithJSON(map[string]any{
		"ok":     false,
		"reason": reason,
	}, statusCode, w)
}

// Run serves opts.Addr until ctx is cancelled, optionally announcing itself
// over mDNS.
func Run(ctx context.Context, opts Options) error {
	srv := NewServer(opts.Resource)

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", opts.Addr, err)
	}
	logging.Infof("dev backend listening on %s (resource %s)", ln.Addr(), opts.Resource)

	if opts.Announce {
		instance := opts.Instance
		if instance == "" {
			instance = "carradio-dev"
		}
		ann, err := discovery.Announce(instance, ln.Addr().(*net.TCPAddr).Port, opts.Resource)
		if err != nil {
			logging.Warnf("mDNS announce failed: %v", err)
		} else {
			defer ann.Shutdown()
		}
	}

	httpServer := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	srv.hub.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
