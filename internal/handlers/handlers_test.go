package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/lumofit/companion/internal/gateway"
	"github.com/lumofit/companion/internal/handlers"
	"github.com/lumofit/companion/internal/routes"
	"github.com/lumofit/companion/internal/services"
	"github.com/lumofit/companion/internal/storage"
)

// fakeBackend stands in for both remote APIs
func fakeBackend(t *testing.T, readingsCalls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Invalid credentials"}`))
			return
		}
		w.Write([]byte(`{"token":"T1","user":{"id":"u1","nickname":"sam"}}`))
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/savePatientData", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer T1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"message":"Patient saved","patient":{"id":"p1","name":"Ann","emergencyContact":"0771234567"}}`))
	})
	mux.HandleFunc("/getReadings", func(w http.ResponseWriter, r *http.Request) {
		if readingsCalls != nil {
			atomic.AddInt32(readingsCalls, 1)
		}
		if r.Header.Get("Authorization") != "Bearer T1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"heartRate":{"value":72,"unit":"BPM","status":"Normal"}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestAPI(t *testing.T, backendURL string) (*handlers.API, http.Handler) {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()

	var session *services.SessionManager
	tokens := gateway.TokenFunc(func() string { return session.Token() })
	authAPI := gateway.NewAuthAPI(gateway.NewClient(backendURL, 2*time.Second, tokens))
	readingsAPI := gateway.NewReadingsAPI(gateway.NewClient(backendURL, 2*time.Second, tokens))
	session = services.NewSessionManager(store, authAPI)
	session.Bootstrap(ctx)

	patients, _ := services.NewPatientCache(ctx, store)
	devices, _ := services.NewDeviceList(ctx, store)
	api := &handlers.API{
		Session:  session,
		Readings: readingsAPI,
		Poller:   services.NewPoller(readingsAPI),
		Patients: patients,
		Devices:  devices,
		Alerts:   services.NewAlertFeed(10),
		Live:     services.NewLiveFeed(),
	}
	r := chi.NewRouter()
	routes.SetupRoutes(r, api)
	return api, r
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestHealth(t *testing.T) {
	_, h := newTestAPI(t, "http://127.0.0.1:0")
	rec, out := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || out["status"] != "ok" {
		t.Fatalf("unexpected health %d %v", rec.Code, out)
	}
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	_, h := newTestAPI(t, "http://127.0.0.1:0")
	rec, out := do(t, h, http.MethodGet, "/api/patients", "")
	if rec.Code != http.StatusUnauthorized || out["success"] != false {
		t.Fatalf("expected 401, got %d %v", rec.Code, out)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	backend := fakeBackend(t, nil)
	_, h := newTestAPI(t, backend.URL)
	rec, out := do(t, h, http.MethodPost, "/api/session/login", `{"username":"sam","password":"nope"}`)
	if rec.Code != http.StatusUnauthorized || out["error"] != "Invalid credentials" {
		t.Fatalf("expected backend message, got %d %v", rec.Code, out)
	}
}

func TestLogin_Validation(t *testing.T) {
	_, h := newTestAPI(t, "http://127.0.0.1:0")
	rec, out := do(t, h, http.MethodPost, "/api/session/login", `{"username":"","password":"pw"}`)
	if rec.Code != http.StatusBadRequest || out["field"] != "username" {
		t.Fatalf("expected validation error, got %d %v", rec.Code, out)
	}
}

func TestPatientFlow(t *testing.T) {
	backend := fakeBackend(t, nil)
	api, h := newTestAPI(t, backend.URL)

	rec, out := do(t, h, http.MethodPost, "/api/session/login", `{"email":"sam@example.com","password":"pw"}`)
	if rec.Code != http.StatusOK || out["authenticated"] != true {
		t.Fatalf("login failed: %d %v", rec.Code, out)
	}
	if out["session"].(map[string]interface{})["isLoading"] != false {
		t.Fatalf("login response still loading: %v", out["session"])
	}
	if strings.Contains(rec.Body.String(), "T1") {
		t.Fatalf("token must not leak to the UI: %s", rec.Body.String())
	}

	rec, out = do(t, h, http.MethodPost, "/api/patients", `{"name":"Ann","birthDate":"1950-06-15"}`)
	if rec.Code != http.StatusCreated || out["message"] != "Patient saved" {
		t.Fatalf("create failed: %d %v", rec.Code, out)
	}
	if list := api.Patients.List(); len(list) != 1 || list[0].ID != "p1" {
		t.Fatalf("expected server patient cached, got %+v", list)
	}

	rec, out = do(t, h, http.MethodPost, "/api/patients/p1/toggle", "")
	if rec.Code != http.StatusOK || out["patient"].(map[string]interface{})["isActive"] != true {
		t.Fatalf("toggle failed: %d %v", rec.Code, out)
	}

	rec, out = do(t, h, http.MethodGet, "/api/patients/p1/emergency", "")
	if rec.Code != http.StatusOK || out["plan"].(map[string]interface{})["callUri"] != "tel:0771234567" {
		t.Fatalf("emergency failed: %d %v", rec.Code, out)
	}

	rec, out = do(t, h, http.MethodGet, "/api/patients/p1/readings", "")
	snap, _ := out["snapshot"].(map[string]interface{})
	if rec.Code != http.StatusOK || snap["heartRate"].(map[string]interface{})["value"] != "72" {
		t.Fatalf("readings failed: %d %v", rec.Code, out)
	}
	if snap["oxygenLevel"].(map[string]interface{})["value"] != "--" {
		t.Fatalf("expected placeholder oxygen, got %v", snap["oxygenLevel"])
	}

	rec, _ = do(t, h, http.MethodDelete, "/api/patients/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec, out = do(t, h, http.MethodPost, "/api/session/logout", "")
	if rec.Code != http.StatusOK || out["authenticated"] != false {
		t.Fatalf("logout failed: %d %v", rec.Code, out)
	}
}

func TestDevicesAndAlerts(t *testing.T) {
	backend := fakeBackend(t, nil)
	_, h := newTestAPI(t, backend.URL)
	do(t, h, http.MethodPost, "/api/session/login", `{"username":"sam","password":"pw"}`)

	rec, out := do(t, h, http.MethodPost, "/api/devices", `{"name":"Chest strap"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add device: %d %v", rec.Code, out)
	}
	id := out["device"].(map[string]interface{})["id"].(string)

	_, out = do(t, h, http.MethodGet, "/api/devices", "")
	if len(out["devices"].([]interface{})) != 1 {
		t.Fatalf("expected one device, got %v", out)
	}
	rec, _ = do(t, h, http.MethodDelete, "/api/devices/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("remove device: %d", rec.Code)
	}

	rec, out = do(t, h, http.MethodGet, "/api/alerts", "")
	if rec.Code != http.StatusOK || len(out["alerts"].([]interface{})) != 0 {
		t.Fatalf("expected empty alerts, got %d %v", rec.Code, out)
	}
}

func TestUpload_NotConfigured(t *testing.T) {
	backend := fakeBackend(t, nil)
	_, h := newTestAPI(t, backend.URL)
	do(t, h, http.MethodPost, "/api/session/login", `{"username":"sam","password":"pw"}`)
	rec, _ := do(t, h, http.MethodPost, "/api/upload", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestVitalsWebSocket_StreamsAndStopsPoller(t *testing.T) {
	var calls int32
	backend := fakeBackend(t, &calls)
	api, h := newTestAPI(t, backend.URL)
	do(t, h, http.MethodPost, "/api/session/login", `{"username":"sam","password":"pw"}`)

	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/vitals?patient_id=p1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	var got services.LiveEvent
	for {
		var ev services.LiveEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		if ev.Type == services.EventVitals && ev.State != nil && ev.State.Snapshot.HeartRate.Value == "72" && !ev.State.Loading {
			got = ev
			break
		}
	}
	if got.PatientID != "p1" {
		t.Fatalf("unexpected event %+v", got)
	}
	if api.Live.Count("p1") != 1 {
		t.Fatalf("expected registered viewer")
	}

	conn.Close()
	waitUntil(t, func() bool { return api.Live.Count("p1") == 0 })
	n := atomic.LoadInt32(&calls)
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&calls) != n {
		t.Fatalf("poller kept fetching after the socket closed")
	}
}

func TestVitalsWebSocket_RequiresPatient(t *testing.T) {
	backend := fakeBackend(t, nil)
	_, h := newTestAPI(t, backend.URL)
	do(t, h, http.MethodPost, "/api/session/login", `{"username":"sam","password":"pw"}`)
	rec, _ := do(t, h, http.MethodGet, "/ws/vitals", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}
