package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lumofit/companion/internal/models"
)

// VitalsTopic is the MQTT topic a patient's snapshots are published on
func VitalsTopic(patientID string) string {
	return "lumofit/patients/" + patientID + "/vitals"
}

// VitalsMessage is the MQTT payload
type VitalsMessage struct {
	PatientID string          `json:"patient_id"`
	Snapshot  models.Snapshot `json:"snapshot"`
	Timestamp time.Time       `json:"timestamp"`
}

var connectHandler mqtt.OnConnectHandler = func(client mqtt.Client) {
	log.Println("✅ Connected to MQTT broker")
}

var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	log.Printf("⚠️ MQTT connection lost: %v", err)
}

// InitMQTTClient connects to broker with auto-reconnect
func InitMQTTClient(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(fmt.Sprintf("%s-%d", clientID, time.Now().Unix()))
	opts.OnConnect = connectHandler
	opts.OnConnectionLost = connectLostHandler
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return client, nil
}

// VitalsPublisher republishes normalised snapshots to MQTT
type VitalsPublisher struct {
	client  mqtt.Client
	timeout time.Duration
}

func NewVitalsPublisher(client mqtt.Client) *VitalsPublisher {
	return &VitalsPublisher{client: client, timeout: 2 * time.Second}
}

// Publish sends one snapshot with QoS 0, not retained
func (p *VitalsPublisher) Publish(patientID string, snap models.Snapshot) error {
	data, err := json.Marshal(VitalsMessage{PatientID: patientID, Snapshot: snap, Timestamp: time.Now().UTC()})
	if err != nil {
		return err
	}
	token := p.client.Publish(VitalsTopic(patientID), 0, false, data)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("mqtt publish to %s timed out", VitalsTopic(patientID))
	}
	return token.Error()
}

// Hook adapts the publisher to a poller snapshot hook; failures are logged
func (p *VitalsPublisher) Hook() SnapshotHook {
	return func(patientID string, snap models.Snapshot) {
		if err := p.Publish(patientID, snap); err != nil {
			log.Printf("mqtt: publish vitals for %s: %v", patientID, err)
		}
	}
}

func (p *VitalsPublisher) Close() {
	p.client.Disconnect(250)
}
