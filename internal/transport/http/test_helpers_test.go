package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/edunexus/server/internal/auth"
	"github.com/edunexus/server/internal/config"
	"github.com/edunexus/server/internal/core"
	"github.com/edunexus/server/internal/proto"
	"github.com/edunexus/server/internal/store"
	"github.com/edunexus/server/internal/store/sqlite"
)

type testEnv struct {
	t     *testing.T
	ts    *httptest.Server
	store store.Store
	auth  *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}
	authService := auth.NewService(st, jwtConfig)

	logger := zerolog.Nop()
	hub := core.NewHub(st, st, &logger, core.HubConfig{HistoryLimit: 50, MaxMessageLength: 2000})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.MessagesPerMinute = 0 // no rate limit unless a test opts in

	server := NewServer(hub, authService, st, cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{t: t, ts: ts, store: st, auth: authService}
}

// request performs a JSON request against the test server. A non-empty
// token is sent as a bearer credential.
func (e *testEnv) request(method, path, token string, body any) *stdhttp.Response {
	e.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := stdhttp.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		e.t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *stdhttp.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return out
}

// register creates an account through the API and returns the auth
// response with its token.
func (e *testEnv) register(name, email, role string) AuthResponse {
	e.t.Helper()

	resp := e.request("POST", "/api/auth/register", "", RegisterRequest{
		Name:     name,
		Email:    email,
		Password: "password123",
		Role:     role,
	})
	if resp.StatusCode != stdhttp.StatusCreated {
		e.t.Fatalf("register %s: unexpected status %d", email, resp.StatusCode)
	}
	return decodeBody[AuthResponse](e.t, resp)
}

// registerAdmin creates an account then promotes it directly in the
// store, since the registration endpoint refuses the admin role.
func (e *testEnv) registerAdmin(name, email string) AuthResponse {
	e.t.Helper()

	out := e.register(name, email, "student")
	if err := e.store.UpdateUserRole(context.Background(), out.User.ID, store.RoleAdmin); err != nil {
		e.t.Fatalf("promote %s to admin: %v", email, err)
	}

	// Re-login so the token carries the admin role.
	resp := e.request("POST", "/api/auth/login", "", LoginRequest{Email: email, Password: "password123"})
	if resp.StatusCode != stdhttp.StatusOK {
		e.t.Fatalf("login %s: unexpected status %d", email, resp.StatusCode)
	}
	return decodeBody[AuthResponse](e.t, resp)
}

// createCourse creates a course through the API using the given token.
func (e *testEnv) createCourse(token, title string) CourseResponse {
	e.t.Helper()

	resp := e.request("POST", "/api/courses", token, CreateCourseRequest{
		Title:       title,
		Description: "test course",
		Category:    "Testing",
	})
	if resp.StatusCode != stdhttp.StatusCreated {
		e.t.Fatalf("create course %q: unexpected status %d", title, resp.StatusCode)
	}
	return decodeBody[CourseResponse](e.t, resp)
}

// enroll enrolls the token's user into a course through the API.
func (e *testEnv) enroll(token string, courseID int64) {
	e.t.Helper()

	resp := e.request("POST", fmt.Sprintf("/api/courses/%d/enroll", courseID), token, nil)
	resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusOK {
		e.t.Fatalf("enroll into course %d: unexpected status %d", courseID, resp.StatusCode)
	}
}

// dialWS opens an authenticated websocket connection to the test server.
func (e *testEnv) dialWS(ctx context.Context, token string) *websocket.Conn {
	e.t.Helper()

	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		e.t.Fatalf("ws dial: %v", err)
	}
	e.t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func sendFrame(ctx context.Context, t *testing.T, conn *websocket.Conn, frameType string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s data: %v", frameType, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: frameType, Data: payload}); err != nil {
		t.Fatalf("write %s frame: %v", frameType, err)
	}
}

type outboundFrame struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func readFrame(ctx context.Context, t *testing.T, conn *websocket.Conn) outboundFrame {
	t.Helper()

	var frame outboundFrame
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read ws frame: %v", err)
	}
	return frame
}

// readFrameOfType reads frames until one of the wanted type arrives.
func readFrameOfType(ctx context.Context, t *testing.T, conn *websocket.Conn, frameType string) outboundFrame {
	t.Helper()

	for {
		frame := readFrame(ctx, t, conn)
		if frame.Type == frameType {
			return frame
		}
	}
}
