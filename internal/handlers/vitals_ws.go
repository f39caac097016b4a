package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lumofit/companion/internal/services"
)

// vitalsUpgrader is the shared upgrader for live vitals connections.
var vitalsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is handled at the HTTP layer; the listener is loopback-only in production.
		return true
	},
}

const (
	vitalsReadTimeout  = 90 * time.Second
	vitalsWriteTimeout = 10 * time.Second
	vitalsPingInterval = 30 * time.Second
)

// VitalsClientMessage is what the health-detail view may send
type VitalsClientMessage struct {
	Type string `json:"type"` // "refresh", "ping"
}

type wsConn struct {
	*websocket.Conn
}

// WriteJSON bounds every write so a stalled UI cannot wedge the poller
func (c wsConn) WriteJSON(v interface{}) error {
	_ = c.SetWriteDeadline(time.Now().Add(vitalsWriteTimeout))
	return c.Conn.WriteJSON(v)
}

// VitalsWebSocket streams one patient's readings for the lifetime of the
// connection. Each connection owns exactly one poller.
func (a *API) VitalsWebSocket(w http.ResponseWriter, r *http.Request) {
	patientID := strings.TrimSpace(r.URL.Query().Get("patient_id"))
	if patientID == "" {
		http.Error(w, "patient_id is required", http.StatusBadRequest)
		return
	}

	conn, err := vitalsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	viewer := a.Live.Register(patientID, wsConn{conn})
	defer a.Live.Unregister(viewer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handle := a.Poller.Start(ctx, patientID)
	defer handle.Stop()

	// Writer goroutine: forward poll state to this connection
	go func() {
		ping := time.NewTicker(vitalsPingInterval)
		defer ping.Stop()
		for {
			select {
			case state, ok := <-handle.Updates():
				if !ok {
					return
				}
				if err := viewer.Send(services.LiveEvent{Type: services.EventVitals, PatientID: patientID, State: &state}); err != nil {
					cancel()
					conn.Close()
					return
				}
			case <-ping.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(vitalsWriteTimeout))
			case <-ctx.Done():
				return
			}
		}
	}()

	// Reader loop: handle client messages
	conn.SetReadLimit(4 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(vitalsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(vitalsReadTimeout))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(vitalsReadTimeout))

		var msg VitalsClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "refresh":
			if err := handle.Refresh(ctx); err != nil {
				log.Printf("vitals: refresh for %s: %v", patientID, err)
			}
		case "ping":
			_ = viewer.Send(services.LiveEvent{Type: "pong", PatientID: patientID})
		}
	}
}
