package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"atlas-quiz-service/internal/app"
	"atlas-quiz-service/internal/domain"
	"atlas-quiz-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketAnswerFlow(t *testing.T) {
	store := memory.NewSessionStore()
	assets := memory.NewAssetRepository(memory.NewStaticAssetLoader(sampleCatalog(), sampleImages()), time.Minute)
	service := app.NewGameService(store, assets)
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?sessionId=s1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect the session bootstrap and the initial state push, in either
	// order; the current image's map must be redacted while the round is open.
	var opening map[string]any
	for i := 0; i < 2; i++ {
		typ, payload := readNext(conn, t, "")
		if typ != "session" && typ != "state" {
			t.Fatalf("expected session or state, got %s", typ)
		}
		opening = payload
	}
	current, ok := opening["current"].(map[string]any)
	if !ok || current["path"] == "" {
		t.Fatalf("expected a current image, got %+v", opening)
	}
	if _, leaked := current["mapName"]; leaked {
		t.Fatalf("answer key leaked before the round closed: %+v", current)
	}

	// Answer with a known-wrong name, then expect answerResult revealing the
	// correct one and a state push carrying the unredacted image.
	answer := map[string]any{
		"type":    "answer",
		"payload": map[string]any{"mapName": "Atlantis"},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	resultSeen := false
	stateSeen := false
	for i := 0; i < 3; i++ {
		typ, payload := readNext(conn, t, "")
		switch typ {
		case "answerResult":
			resultSeen = true
			if payload["correct"] != false || payload["correctName"] == "" {
				t.Fatalf("unexpected answer result: %+v", payload)
			}
		case "state":
			stateSeen = true
			current, _ := payload["current"].(map[string]any)
			if current["mapName"] == nil {
				t.Fatalf("expected map revealed after answering: %+v", payload)
			}
		}
		if resultSeen && stateSeen {
			break
		}
	}
	if !resultSeen || !stateSeen {
		t.Fatalf("expected answerResult and state, got answerResult=%v state=%v", resultSeen, stateSeen)
	}

	// Requesting the next round opens a fresh, redacted one.
	if err := conn.WriteJSON(map[string]any{"type": "next"}); err != nil {
		t.Fatalf("write next: %v", err)
	}
	_, payload := readNext(conn, t, "state")
	if payload["answered"] != false {
		t.Fatalf("expected open round after next, got %+v", payload)
	}
	current, _ = payload["current"].(map[string]any)
	if _, leaked := current["mapName"]; leaked {
		t.Fatalf("answer key leaked on new round: %+v", current)
	}
}

func TestServeWSRequiresSessionID(t *testing.T) {
	service := app.NewGameService(memory.NewSessionStore(),
		memory.NewAssetRepository(memory.NewStaticAssetLoader(sampleCatalog(), sampleImages()), time.Minute))
	wsHandler := NewWSHandler(service)

	server := httptest.NewServer(http.HandlerFunc(wsHandler.ServeWS))
	defer server.Close()

	resp, err := http.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without sessionId, got %d", resp.StatusCode)
	}
}

func TestServeWSReportsAssetLoadFailure(t *testing.T) {
	service := app.NewGameService(memory.NewSessionStore(),
		memory.NewAssetRepository(memory.NewStaticAssetLoader(nil, nil), time.Minute))
	wsHandler := NewWSHandler(service)

	server := httptest.NewServer(http.HandlerFunc(wsHandler.ServeWS))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/?sessionId=s1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_, payload := readNext(conn, t, "error")
	if msg, _ := payload["message"].(string); msg == "" {
		t.Fatalf("expected error message, got %+v", payload)
	}

	// The handler closes the socket after reporting the failure.
	var discard map[string]any
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&discard); err == nil {
		t.Fatalf("expected connection closed after error frame")
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func sampleCatalog() map[string]string {
	return map[string]string{
		"alpine": "Alpine",
		"bridge": "Bridgetown",
	}
}

func sampleImages() []domain.ImageRef {
	return []domain.ImageRef{
		{Path: "assets/alpine/summit.png", MapID: "alpine"},
		{Path: "assets/bridge/harbor.png", MapID: "bridge"},
	}
}
