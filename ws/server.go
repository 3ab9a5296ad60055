package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/services"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Server accepts inbound connections, authenticates them against the
// identity collaborator and hands each one to a Client. It also serves
// the read-only REST surface used for history backfill after a
// (re)connect — every reconnect is a brand-new session with no replay.
type Server struct {
	log         *slog.Logger
	svc         services.IChatService
	tokens      *auth.TokenManager
	directory   *auth.ProjectDirectory
	upgrader    websocket.Upgrader
	validate    *validator.Validate
	authTimeout time.Duration
	queueSize   int
}

func NewServer(log *slog.Logger, svc services.IChatService,
	tokens *auth.TokenManager, directory *auth.ProjectDirectory,
	authTimeout time.Duration, queueSize int) *Server {
	return &Server{
		log:       log,
		svc:       svc,
		tokens:    tokens,
		directory: directory,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		validate:    validator.New(),
		authTimeout: authTimeout,
		queueSize:   queueSize,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWS)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/projects/{id}/rooms", s.handleListRooms).Methods(http.MethodGet)
	r.HandleFunc("/projects/{id}/rooms/{roomId}/messages", s.handleHistory).Methods(http.MethodGet)
	return r
}

// handleWS authenticates the bearer token within the configured window
// and only then creates any session state. A rejected token terminates
// the connection before the upgrade.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	authCtx, cancel := context.WithTimeout(r.Context(), s.authTimeout)
	defer cancel()

	claims, err := s.authenticate(authCtx, r)
	if err != nil {
		s.log.Warn("Connection rejected", "remote_addr", r.RemoteAddr, "error", err)
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	// The token is the identity collaborator's statement of project
	// membership; record it before any join can be attempted.
	s.directory.Grant(claims.UserID, claims.GrantedProjects())

	session := domain.NewSession(claims.UserID, claims.DisplayName)
	_ = session.TransitionTo(domain.StateAuthenticating)
	_ = session.TransitionTo(domain.StateConnected)

	client := NewClient(session, conn, s.svc, s.validate, s.queueSize, s.log)
	s.svc.Connect(session, client)

	s.log.Info("Session connected",
		"session_id", session.ID.String(), "user_id", claims.UserID, "remote_addr", r.RemoteAddr)
	client.Serve(r.Context())
}

// authenticate runs token validation under the auth deadline, the same
// bound a remote identity collaborator call would get.
func (s *Server) authenticate(ctx context.Context, r *http.Request) (*auth.CustomClaims, error) {
	token := bearerToken(r)

	type result struct {
		claims *auth.CustomClaims
		err    error
	}
	done := make(chan result, 1)
	go func() {
		claims, err := s.tokens.Validate(token)
		done <- result{claims: claims, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.claims, res.err
	}
}

// bearerToken extracts the opaque token from the Authorization header,
// falling back to the token query parameter for browser clients that
// cannot set websocket handshake headers.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
