package agent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/martinevsky/whip-core/internal/actuator"
	"github.com/martinevsky/whip-core/internal/infrastructure/config"
	"github.com/martinevsky/whip-core/internal/infrastructure/logging"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// brokerStub is a minimal stand-in for whipd's WebSocket endpoint.
type brokerStub struct {
	srv        *httptest.Server
	conns      chan *websocket.Conn
	lastAuth   atomic.Value // string
	dialCount  atomic.Int64
	rejectWith int // close code sent immediately after upgrade, 0 = accept
}

func newBrokerStub(t *testing.T) *brokerStub {
	t.Helper()

	b := &brokerStub{conns: make(chan *websocket.Conn, 8)}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.dialCount.Add(1)
		b.lastAuth.Store(r.Header.Get("Authorization"))

		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		if b.rejectWith != 0 {
			msg := websocket.FormatCloseMessage(b.rejectWith, "rejected")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			time.Sleep(100 * time.Millisecond)
			conn.Close()
			return
		}

		b.conns <- conn
	}))
	t.Cleanup(b.srv.Close)

	return b
}

func (b *brokerStub) wsURL() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http")
}

// testAgent builds an agent with sim drivers and starts its controller.
func testAgent(t *testing.T, serverURL string) (*Agent, *actuator.SimDriver, *actuator.SimDriver) {
	t.Helper()

	logger := logging.Default()
	left := actuator.NewSimDriver("left", logger)
	right := actuator.NewSimDriver("right", logger)

	controller := actuator.NewController(
		actuator.NewSideTimer("left", left, logger),
		actuator.NewSideTimer("right", right, logger),
		logger,
	)
	controller.Start(context.Background())
	t.Cleanup(func() { controller.Close() })

	cfg := config.AgentConfig{
		ServerURL: serverURL,
		Token:     "secret",
		Reconnect: config.AgentReconnectConfig{InitialDelay: 1, MaxDelay: 2},
	}

	return New(cfg, controller, nil, logger), left, right
}

func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestAgent_SendsBearerToken(t *testing.T) {
	stub := newBrokerStub(t)
	agent, _, _ := testAgent(t, stub.wsURL())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go agent.Run(ctx)

	waitUntil(t, func() bool { return stub.dialCount.Load() > 0 }, "agent never dialed")
	if got := stub.lastAuth.Load(); got != "Bearer secret" {
		t.Errorf("Authorization = %q, want Bearer secret", got)
	}
}

func TestAgent_AppliesCommands(t *testing.T) {
	stub := newBrokerStub(t)
	agent, left, right := testAgent(t, stub.wsURL())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go agent.Run(ctx)

	conn := <-stub.conns
	defer conn.Close()

	frame := `{"command":"whip","duration":1,"side":"left","ts":"2026-01-01T00:00:00Z"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	waitUntil(t, left.IsOn, "left output did not turn on")
	if right.IsOn() {
		t.Error("right output turned on for a left-only command")
	}
}

func TestAgent_SurvivesBadFrames(t *testing.T) {
	stub := newBrokerStub(t)
	agent, left, _ := testAgent(t, stub.wsURL())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go agent.Run(ctx)

	conn := <-stub.conns
	defer conn.Close()

	// Garbage, wrong command, out-of-range duration: all skipped silently.
	for _, frame := range []string{
		`not json at all`,
		`{"command":"launch","duration":5}`,
		`{"command":"whip","duration":99,"side":"left"}`,
	} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatalf("WriteMessage() error = %v", err)
		}
	}

	// The session must still be alive and processing.
	good := `{"command":"whip","duration":1,"side":"left","ts":"2026-01-01T00:00:00Z"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(good)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	waitUntil(t, left.IsOn, "left output did not turn on after bad frames")
}

func TestAgent_Reconnects(t *testing.T) {
	stub := newBrokerStub(t)
	agent, _, _ := testAgent(t, stub.wsURL())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go agent.Run(ctx)

	// Kill the first session; the agent must come back.
	first := <-stub.conns
	first.Close()

	waitUntil(t, func() bool { return stub.dialCount.Load() >= 2 }, "agent did not reconnect")
}

func TestAgent_GivesUpOnPolicyViolation(t *testing.T) {
	stub := newBrokerStub(t)
	stub.rejectWith = websocket.ClosePolicyViolation
	agent, _, _ := testAgent(t, stub.wsURL())

	errCh := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { errCh <- agent.Run(ctx) }()

	select {
	case err := <-errCh:
		if err == nil || errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want credential rejection", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run() did not stop after policy violation close")
	}
}

func TestAgent_StopsOnCancel(t *testing.T) {
	stub := newBrokerStub(t)
	agent, _, _ := testAgent(t, stub.wsURL())

	errCh := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { errCh <- agent.Run(ctx) }()

	<-stub.conns
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run() did not stop on cancel")
	}
}

func TestHandleFrame_DefaultsSideToBoth(t *testing.T) {
	stub := newBrokerStub(t)
	agent, left, right := testAgent(t, stub.wsURL())

	agent.handleFrame([]byte(`{"command":"whip","duration":1,"ts":"2026-01-01T00:00:00Z"}`))

	waitUntil(t, left.IsOn, "left output did not turn on")
	waitUntil(t, right.IsOn, "right output did not turn on")
}

func TestHandleFrame_IgnoresUnknownSide(t *testing.T) {
	stub := newBrokerStub(t)
	agent, left, right := testAgent(t, stub.wsURL())

	agent.handleFrame([]byte(`{"command":"whip","duration":1,"side":"middle"}`))

	time.Sleep(50 * time.Millisecond)
	if left.IsOn() || right.IsOn() {
		t.Error("outputs energised by a command with an unknown side")
	}
}

func TestHandleFrame_IgnoresDurationOutOfRange(t *testing.T) {
	stub := newBrokerStub(t)
	agent, left, _ := testAgent(t, stub.wsURL())

	for _, frame := range []string{
		`{"command":"whip","duration":0,"side":"left"}`,
		`{"command":"whip","duration":61,"side":"left"}`,
		`{"command":"whip","duration":-1,"side":"left"}`,
	} {
		agent.handleFrame([]byte(frame))
	}

	time.Sleep(50 * time.Millisecond)
	if left.IsOn() {
		t.Error("output energised by an out-of-range duration")
	}
}
