package http

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"atlas-quiz-service/internal/app"
	"atlas-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	MapName string `json:"mapName"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// imageView is the wire form of the current image. The owning map is
// redacted until the round is answered so clients cannot read the answer
// key off the socket.
type imageView struct {
	Path    string `json:"path"`
	MapID   string `json:"mapId,omitempty"`
	MapName string `json:"mapName,omitempty"`
}

type snapshotView struct {
	SessionID      string              `json:"sessionId"`
	State          domain.SessionState `json:"state"`
	TotalImages    int                 `json:"totalImages"`
	UnseenCount    int                 `json:"unseenCount"`
	Current        *imageView          `json:"current,omitempty"`
	Options        []string            `json:"options"`
	SelectedAnswer string              `json:"selectedAnswer"`
	Answered       bool                `json:"answered"`
	Score          int                 `json:"score"`
	TotalAttempts  int                 `json:"totalAttempts"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

func viewOf(snap domain.Snapshot) snapshotView {
	view := snapshotView{
		SessionID:      snap.SessionID,
		State:          snap.State,
		TotalImages:    snap.TotalImages,
		UnseenCount:    snap.UnseenCount,
		Options:        snap.Options,
		SelectedAnswer: snap.SelectedAnswer,
		Answered:       snap.Answered,
		Score:          snap.Score,
		TotalAttempts:  snap.TotalAttempts,
		UpdatedAt:      snap.UpdatedAt,
	}
	if snap.Current != nil {
		img := imageView{Path: snap.Current.Path}
		if snap.Answered {
			img.MapID = snap.Current.MapID
			img.MapName = snap.Current.MapName
		}
		view.Current = &img
	}
	return view
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	started, err := h.service.Start(r.Context(), sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()
	defer h.service.Leave(r.Context(), sessionID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: viewOf(update)}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "session", Payload: viewOf(started)}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			_, result, err := h.service.SubmitAnswer(r.Context(), sessionID, payload.MapName)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			if result != nil {
				send <- outboundMessage[any]{Type: "answerResult", Payload: *result}
			}
		case "next":
			if _, err := h.service.NextRound(r.Context(), sessionID); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
