package services

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lumofit/companion/internal/models"
)

type fakeToken struct {
	mqtt.Token
	completes bool
	err       error
}

func (t *fakeToken) Wait() bool { return t.completes }
func (t *fakeToken) WaitTimeout(d time.Duration) bool { return t.completes }
func (t *fakeToken) Error() error { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.completes {
		close(ch)
	}
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeMQTT struct {
	mqtt.Client

	mu          sync.Mutex
	token       *fakeToken
	sent        []published
	disconnects []uint
}

func (c *fakeMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, _ := payload.([]byte)
	c.sent = append(c.sent, published{topic: topic, qos: qos, retained: retained, payload: b})
	return c.token
}

func (c *fakeMQTT) Disconnect(quiesce uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects = append(c.disconnects, quiesce)
}

func TestVitalsPublisher_PublishesQoS0NotRetained(t *testing.T) {
	client := &fakeMQTT{token: &fakeToken{completes: true}}
	p := NewVitalsPublisher(client)

	snap := models.PlaceholderSnapshot()
	snap.HeartRate = models.Reading{Value: "88", Unit: "BPM", Status: models.StatusHigh}
	if err := p.Publish("p1", snap); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(client.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(client.sent))
	}
	msg := client.sent[0]
	if msg.topic != "lumofit/patients/p1/vitals" || msg.qos != 0 || msg.retained {
		t.Fatalf("unexpected publish %q qos=%d retained=%v", msg.topic, msg.qos, msg.retained)
	}
	var body VitalsMessage
	if err := json.Unmarshal(msg.payload, &body); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if body.PatientID != "p1" || body.Snapshot.HeartRate.Value != "88" || body.Timestamp.IsZero() {
		t.Fatalf("unexpected payload %+v", body)
	}
}

func TestVitalsPublisher_Timeout(t *testing.T) {
	client := &fakeMQTT{token: &fakeToken{completes: false}}
	p := NewVitalsPublisher(client)

	err := p.Publish("p1", models.PlaceholderSnapshot())
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestVitalsPublisher_BrokerError(t *testing.T) {
	client := &fakeMQTT{token: &fakeToken{completes: true, err: errors.New("not connected")}}
	p := NewVitalsPublisher(client)

	if err := p.Publish("p1", models.PlaceholderSnapshot()); err == nil || err.Error() != "not connected" {
		t.Fatalf("expected broker error, got %v", err)
	}
	// the hook only logs
	p.Hook()("p1", models.PlaceholderSnapshot())
	if len(client.sent) != 2 {
		t.Fatalf("expected hook to publish, got %d messages", len(client.sent))
	}
}

func TestVitalsPublisher_Close(t *testing.T) {
	client := &fakeMQTT{token: &fakeToken{completes: true}}
	NewVitalsPublisher(client).Close()
	if len(client.disconnects) != 1 || client.disconnects[0] != 250 {
		t.Fatalf("expected one disconnect with quiesce 250, got %v", client.disconnects)
	}
}
