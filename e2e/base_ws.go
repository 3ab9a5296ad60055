package e2e

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"time"

	"chat-relay/auth"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"chat-relay/ws"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

// BaseWsSuite boots the full relay stack in-process behind an
// httptest server and hands out authenticated websocket clients.
type BaseWsSuite struct {
	suite.Suite
	Config Config

	log    *slog.Logger
	db     *badger.DB
	sup    *workers.Supervisor
	tokens *auth.TokenManager
	server *httptest.Server
	cancel context.CancelFunc
}

func (s *BaseWsSuite) SetupSuite() {
	cfg, err := LoadConfig()
	s.Require().NoError(err)
	s.Config = cfg
	s.log = logs.GetLoggerFromLevel(slog.LevelWarn)

	db, err := badger.Open(badger.DefaultOptions(s.T().TempDir()).
		WithLoggingLevel(badger.ERROR))
	s.Require().NoError(err)
	s.db = db

	messages := repositories.NewMessageRepository(db, s.log)
	rooms := repositories.NewRoomRepository(db, s.log)

	s.tokens = auth.NewTokenManager(cfg.AuthSecret, "chat-relay-e2e", time.Hour)
	directory := auth.NewProjectDirectory()

	registry := runtime.NewRegistry()
	s.sup = workers.NewSupervisor(s.log, 100*time.Millisecond)
	relay := runtime.NewMessageRelay(s.log, s.sup, registry, messages, 64, 2*time.Second)
	roomRegistry := runtime.NewRoomRegistry(s.log, registry, rooms, directory)
	presence := runtime.NewPresenceTracker()
	typing := runtime.NewTypingRegistry(cfg.TypingQuantum)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	relay.Start(ctx)
	s.sup.Add(workers.NewTypingSweep(typing, relay.Bus(), cfg.SweepInterval, s.log))
	go s.sup.Run(ctx)

	svc := services.NewChatService(s.log, relay, roomRegistry, presence, typing, registry, messages, rooms)
	server := ws.NewServer(s.log, svc, s.tokens, directory, 5*time.Second, 64)
	s.server = httptest.NewServer(server.Router())
}

func (s *BaseWsSuite) TearDownSuite() {
	s.server.Close()
	s.cancel()
	s.sup.Stop()
	s.Require().NoError(s.db.Close())
}

func (s *BaseWsSuite) wsURL(token string) string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws?token=" + token
}

// Dial opens an authenticated websocket connection for the given user,
// whose token grants membership of the listed projects.
func (s *BaseWsSuite) Dial(userID, displayName string, projects ...string) *wsClient {
	token, err := s.tokens.Generate(userID, displayName, projects)
	s.Require().NoError(err)

	conn, resp, err := websocket.DefaultDialer.Dial(s.wsURL(token), nil)
	s.Require().NoError(err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return &wsClient{suite: s, userID: userID, conn: conn}
}

type wsClient struct {
	suite  *BaseWsSuite
	userID string
	conn   *websocket.Conn
}

func (c *wsClient) Close() {
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = c.conn.Close()
}

func (c *wsClient) Send(frameType string, payload any) {
	raw, err := json.Marshal(payload)
	c.suite.Require().NoError(err)
	frame, err := json.Marshal(ws.Frame{Type: frameType, Payload: raw})
	c.suite.Require().NoError(err)
	c.suite.Require().NoError(c.conn.WriteMessage(websocket.TextMessage, frame))
}

// Expect reads frames until one of the wanted type arrives. Frames of
// other types are skipped: broadcast interleaving across event kinds is
// unspecified, only the per-room order within one kind is guaranteed.
func (c *wsClient) Expect(frameType string) map[string]any {
	deadline := time.Now().Add(c.suite.Config.ReceiveTimeout)
	for {
		c.suite.Require().NoError(c.conn.SetReadDeadline(deadline))
		_, raw, err := c.conn.ReadMessage()
		c.suite.Require().NoErrorf(err, "%s: waiting for %q frame", c.userID, frameType)

		var frame ws.Frame
		c.suite.Require().NoError(json.Unmarshal(raw, &frame))
		if c.suite.Config.DebugJSON {
			c.suite.T().Logf("%s <- %s", c.userID, raw)
		}
		if frame.Type != frameType {
			continue
		}
		var payload map[string]any
		c.suite.Require().NoError(json.Unmarshal(frame.Payload, &payload))
		return payload
	}
}

// ExpectError waits for an error frame carrying the given code.
func (c *wsClient) ExpectError(code string) {
	payload := c.Expect("error")
	c.suite.Require().Equal(code, payload["code"])
}

// ExpectWithout reads until a frame of the wanted type arrives and
// fails if any forbidden frame type shows up on the way. The fanout is
// the bus's single consumer, so every broadcast older than the awaited
// sentinel must already have been delivered: reaching the sentinel
// proves the forbidden frames were never emitted.
func (c *wsClient) ExpectWithout(frameType string, forbidden ...string) map[string]any {
	deadline := time.Now().Add(c.suite.Config.ReceiveTimeout)
	for {
		c.suite.Require().NoError(c.conn.SetReadDeadline(deadline))
		_, raw, err := c.conn.ReadMessage()
		c.suite.Require().NoErrorf(err, "%s: waiting for %q frame", c.userID, frameType)

		var frame ws.Frame
		c.suite.Require().NoError(json.Unmarshal(raw, &frame))
		for _, banned := range forbidden {
			c.suite.Require().NotEqualf(banned, frame.Type,
				"%s: received %q frame that should not have been broadcast", c.userID, banned)
		}
		if frame.Type != frameType {
			continue
		}
		var payload map[string]any
		c.suite.Require().NoError(json.Unmarshal(frame.Payload, &payload))
		return payload
	}
}
