package p2p

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	wsPushInterval  = 50 * time.Millisecond
	wsWriteTimeout  = time.Second
	apiRequestLimit = 20
	apiRequestBurst = 40
)

// Controller is the part of the Server the API needs.
type Controller interface {
	Snapshot() SessionSnapshot
	Submit(ctx context.Context, in Input) error
}

type apiFunc func(w http.ResponseWriter, r *http.Request) error

func makeHTTPHandlerFunc(f apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			JSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		}
	}
}

func JSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type clientLimiter struct {
	lock     sync.Mutex
	limiters map[string]*rate.Limiter
}

func (c *clientLimiter) get(ip string) *rate.Limiter {
	c.lock.Lock()
	defer c.lock.Unlock()
	l, ok := c.limiters[ip]
	if !ok {
		l = rate.NewLimiter(apiRequestLimit, apiRequestBurst)
		c.limiters[ip] = l
	}
	return l
}

func (c *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !c.get(ip).Allow() {
			JSON(w, http.StatusTooManyRequests, map[string]any{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type APIServer struct {
	listenAddr string
	ctrl       Controller
	limiter    *clientLimiter
	upgrader   websocket.Upgrader
}

func NewAPIServer(listenAddr string, ctrl Controller) *APIServer {
	return &APIServer{
		listenAddr: listenAddr,
		ctrl:       ctrl,
		limiter:    &clientLimiter{limiters: make(map[string]*rate.Limiter)},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *APIServer) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(enableCORS)
	r.Use(s.limiter.middleware)

	r.HandleFunc("/api/place", makeHTTPHandlerFunc(s.handlePlace)).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/attack", makeHTTPHandlerFunc(s.handleAttack)).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/orientation", makeHTTPHandlerFunc(s.handleOrientation)).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/exit", makeHTTPHandlerFunc(s.handleExit)).Methods("POST", "OPTIONS")

	r.HandleFunc("/api/state", makeHTTPHandlerFunc(s.handleGetState)).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/health", makeHTTPHandlerFunc(s.handleHealth)).Methods("GET", "OPTIONS")

	r.HandleFunc("/ws", s.handleWS).Methods("GET")
	return r
}

func (s *APIServer) Run() error {
	logrus.WithFields(logrus.Fields{
		"addr": s.listenAddr,
	}).Info("API Server starting...")

	return http.ListenAndServe(s.listenAddr, s.Router())
}

type CoordRequest struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) error {
	snap := s.ctrl.Snapshot()
	return JSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"phase":     snap.Phase,
		"connected": snap.Connected,
	})
}

func (s *APIServer) handleGetState(w http.ResponseWriter, r *http.Request) error {
	return JSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *APIServer) handlePlace(w http.ResponseWriter, r *http.Request) error {
	x, y, err := parseCoord(r)
	if err != nil {
		return err
	}
	if err := s.ctrl.Submit(r.Context(), Input{Kind: InputPlace, X: x, Y: y}); err != nil {
		return err
	}
	snap := s.ctrl.Snapshot()
	return JSON(w, http.StatusOK, map[string]any{
		"status":          "PLACED",
		"x":               x,
		"y":               y,
		"ships_remaining": snap.ShipsRemaining,
	})
}

func (s *APIServer) handleAttack(w http.ResponseWriter, r *http.Request) error {
	x, y, err := parseCoord(r)
	if err != nil {
		return err
	}
	if err := s.ctrl.Submit(r.Context(), Input{Kind: InputAttack, X: x, Y: y}); err != nil {
		return err
	}
	return JSON(w, http.StatusOK, map[string]any{
		"status": "FIRED",
		"x":      x,
		"y":      y,
	})
}

func (s *APIServer) handleOrientation(w http.ResponseWriter, r *http.Request) error {
	if err := s.ctrl.Submit(r.Context(), Input{Kind: InputToggleOrientation}); err != nil {
		return err
	}
	resp := map[string]any{"status": "TOGGLED"}
	if ship := s.ctrl.Snapshot().PendingShip; ship != nil {
		resp["horizontal"] = ship.Horizontal
	}
	return JSON(w, http.StatusOK, resp)
}

func (s *APIServer) handleExit(w http.ResponseWriter, r *http.Request) error {
	if err := s.ctrl.Submit(r.Context(), Input{Kind: InputDismiss}); err != nil {
		return err
	}
	return JSON(w, http.StatusOK, map[string]string{"status": "EXITING"})
}

// handleWS streams the snapshot every time its version changes.
func (s *APIServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Debugf("websocket upgrade failed: %s", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPushInterval)
	defer ticker.Stop()

	var (
		sent bool
		last uint64
	)
	for {
		snap := s.ctrl.Snapshot()
		if !sent || snap.Version != last {
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
			sent = true
			last = snap.Version
		}
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func parseCoord(r *http.Request) (int, int, error) {
	var req CoordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return 0, 0, fmt.Errorf("invalid request body: %s", err)
	}
	if req.X == nil || req.Y == nil {
		return 0, 0, fmt.Errorf("both x and y are required")
	}
	return *req.X, *req.Y, nil
}
