package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/cvetlicarna/internal/db"
	"github.com/erazemk/cvetlicarna/internal/engine"
)

const (
	testSecret    = "connector-secret"
	testJWTSecret = "test-jwt-secret"
)

type testGateway struct {
	server  *httptest.Server
	hub     *Hub
	handled chan engine.Event
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()

	database := db.NewTestDB(t)

	handled := make(chan engine.Event, 16)
	dispatcher := engine.NewDispatcher(func(ctx context.Context, ev engine.Event) {
		handled <- ev
	})

	hash, err := bcrypt.GenerateFromPassword([]byte(testSecret), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing secret: %v", err)
	}

	hub := NewHub()
	g := New(database, dispatcher, hub, testJWTSecret, string(hash))

	server := httptest.NewServer(g.Handler())
	t.Cleanup(server.Close)
	t.Cleanup(hub.Close)

	return &testGateway{server: server, hub: hub, handled: handled}
}

func (tg *testGateway) token(t *testing.T) string {
	t.Helper()

	body := `{"client_id":"test-connector","secret":"` + testSecret + `"}`
	resp, err := http.Post(tg.server.URL+"/auth/token", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("requesting token: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		t.Fatalf("decoding token response: %v", err)
	}
	return tr.Token
}

func (tg *testGateway) post(t *testing.T, token, path, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, tg.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("sending request: %v", err)
	}
	return resp
}

func TestIssueTokenWrongSecret(t *testing.T) {
	tg := newTestGateway(t)

	resp, err := http.Post(tg.server.URL+"/auth/token", "application/json",
		strings.NewReader(`{"client_id":"x","secret":"wrong"}`))
	if err != nil {
		t.Fatalf("requesting token: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestEventsRequireAuth(t *testing.T) {
	tg := newTestGateway(t)

	resp := tg.post(t, "", "/events", `{"type":"text","user_id":1,"payload":"hi"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestReceiveEvent(t *testing.T) {
	tg := newTestGateway(t)
	token := tg.token(t)

	resp := tg.post(t, token, "/events", `{"type":"text","user_id":42,"payload":"/start"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	select {
	case ev := <-tg.handled:
		if ev.Type != engine.EventText || ev.UserID != 42 || ev.Payload != "/start" {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the dispatcher")
	}
}

func TestReceiveEventRejectsUnknownType(t *testing.T) {
	tg := newTestGateway(t)
	token := tg.token(t)

	resp := tg.post(t, token, "/events", `{"type":"sticker","user_id":42}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPhotoRoundTrip(t *testing.T) {
	tg := newTestGateway(t)
	token := tg.token(t)

	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			img.Set(x, y, color.RGBA{200, 20, 80, 255})
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, nil)

	req, _ := http.NewRequest(http.MethodPost, tg.server.URL+"/photos", &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("uploading photo: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decoding upload response: %v", err)
	}
	if created["token"] == "" {
		t.Fatal("expected a photo token")
	}

	get, err := http.Get(tg.server.URL + "/photos/" + created["token"])
	if err != nil {
		t.Fatalf("fetching photo: %v", err)
	}
	defer get.Body.Close()

	if get.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", get.StatusCode)
	}
	if ct := get.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", ct)
	}
}

func TestServePhotoMissing(t *testing.T) {
	tg := newTestGateway(t)

	resp, err := http.Get(tg.server.URL + "/photos/no-such-token")
	if err != nil {
		t.Fatalf("fetching photo: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHubBroadcast(t *testing.T) {
	tg := newTestGateway(t)
	token := tg.token(t)

	wsURL := "ws" + strings.TrimPrefix(tg.server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	defer conn.Close()

	// The server registers the client just after the handshake.
	deadline := time.Now().Add(2 * time.Second)
	for {
		tg.hub.mu.Lock()
		n := len(tg.hub.clients)
		tg.hub.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("client never registered with the hub")
		}
		time.Sleep(5 * time.Millisecond)
	}

	want := engine.Message{UserID: 42, Text: "Pick a size:"}
	if err := tg.hub.Send(context.Background(), want); err != nil {
		t.Fatalf("broadcasting: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading message: %v", err)
	}

	var got engine.Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decoding message: %v", err)
	}
	if got.UserID != want.UserID || got.Text != want.Text {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestWebSocketInboundEvent(t *testing.T) {
	tg := newTestGateway(t)
	token := tg.token(t)

	wsURL := "ws" + strings.TrimPrefix(tg.server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	defer conn.Close()

	frame := `{"type":"selection","user_id":7,"payload":"menu:catalog"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("writing frame: %v", err)
	}

	select {
	case ev := <-tg.handled:
		if ev.Type != engine.EventSelection || ev.UserID != 7 || ev.Payload != "menu:catalog" {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the dispatcher")
	}
}

func TestHubSendWithoutClients(t *testing.T) {
	hub := NewHub()
	if err := hub.Send(context.Background(), engine.Message{UserID: 1, Text: "hello"}); err == nil {
		t.Error("expected error with no connected connectors")
	}
}
