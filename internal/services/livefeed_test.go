package services

import (
	"sync"
	"testing"
	"time"

	"github.com/lumofit/companion/internal/models"
)

type recordingConn struct {
	mu     sync.Mutex
	events []LiveEvent
}

func (c *recordingConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, v.(LiveEvent))
	return nil
}

func (c *recordingConn) Close() error { return nil }

func (c *recordingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestLiveFeed_FanOutByPatient(t *testing.T) {
	feed := NewLiveFeed()
	a, b := &recordingConn{}, &recordingConn{}
	va := feed.Register("p1", a)
	vb := feed.Register("p2", b)
	defer feed.Unregister(vb)

	if feed.Count("p1") != 1 {
		t.Fatalf("expected one viewer of p1")
	}
	feed.PublishAlerts([]models.Alert{{ID: "x", PatientID: "p1"}})
	waitFor(t, "alert delivered", func() bool { return a.count() == 1 })
	time.Sleep(10 * time.Millisecond)
	if b.count() != 0 {
		t.Fatalf("other patient's viewer got the event")
	}
	if ev := a.events[0]; ev.Type != EventAlert || ev.Alert.ID != "x" || ev.Timestamp.IsZero() {
		t.Fatalf("unexpected event %+v", ev)
	}

	feed.Unregister(va)
	feed.Unregister(va)
	if feed.Count("p1") != 0 {
		t.Fatalf("expected viewer removed")
	}
}

func TestAlertHook_UsesCachedName(t *testing.T) {
	alerts := NewAlertFeed(10)
	live := NewLiveFeed()
	conn := &recordingConn{}
	v := live.Register("p1", conn)
	defer live.Unregister(v)

	hook := AlertHook(alerts, nil, live)
	hook("p1", snapWith(models.StatusAlert, models.StatusNormal))
	if len(alerts.List()) != 1 {
		t.Fatalf("expected alert recorded")
	}
	waitFor(t, "alert pushed", func() bool { return conn.count() == 1 })
}
