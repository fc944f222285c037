package speech

import (
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	jsoniter "github.com/json-iterator/go"

	"stationconsole/announce"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const publishTimeout = 2 * time.Second

// MQTTConfig addresses a remote speaker device.
type MQTTConfig struct {
	Broker   string
	Port     int
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// MQTT forwards utterances to a remote speaker over an MQTT broker.
type MQTT struct {
	client mqtt.Client
	topic  string
	qos    byte
	logf   func(string, ...any)
}

type speakMessage struct {
	Text   string    `json:"text"`
	Locale string    `json:"locale"`
	Rate   float64   `json:"rate"`
	At     time.Time `json:"at"`
}

// Purpose: Connect to the broker that fronts the remote speaker.
// Key aspects: Auto-reconnect with capped backoff; the first connect must succeed.
// Upstream: main speaker selection.
// Downstream: paho mqtt.Client.Connect.
func DialMQTT(cfg MQTTConfig, logf func(string, ...any)) (*MQTT, error) {
	logf = logfOrDefault(logf)
	if strings.TrimSpace(cfg.Broker) == "" {
		return nil, fmt.Errorf("speech: mqtt broker is empty")
	}
	if cfg.Port <= 0 {
		cfg.Port = 1883
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		cfg.Topic = "stationconsole"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("stationconsole-%d", time.Now().Unix())
	}
	brokerURL := fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logf("Speech: connected to %s", brokerURL)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logf("Speech: connection to %s lost: %v", brokerURL, err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("speech: connect %s: %w", brokerURL, token.Error())
	}
	return &MQTT{client: client, topic: strings.TrimSuffix(cfg.Topic, "/"), qos: cfg.QoS, logf: logf}, nil
}

// Speak publishes u to <topic>/speak.
func (m *MQTT) Speak(u announce.Utterance) error {
	if m == nil {
		return ErrUnavailable
	}
	payload, err := EncodeSpeak(u, time.Now().UTC())
	if err != nil {
		return err
	}
	return m.publish(m.topic+"/speak", payload)
}

// Cancel publishes an empty object to <topic>/cancel.
func (m *MQTT) Cancel() error {
	if m == nil {
		return ErrUnavailable
	}
	return m.publish(m.topic+"/cancel", []byte("{}"))
}

// publish hands payload to the client and returns at once. The delivery
// outcome is only logged, so a slow broker never stalls the caller.
func (m *MQTT) publish(topic string, payload []byte) error {
	if m == nil || m.client == nil || !m.client.IsConnectionOpen() {
		return ErrUnavailable
	}
	token := m.client.Publish(topic, m.qos, false, payload)
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			m.logf("Speech: publish %s timed out", topic)
			return
		}
		if err := token.Error(); err != nil {
			m.logf("Speech: publish %s failed: %v", topic, err)
		}
	}()
	return nil
}

// Close disconnects, waiting briefly for in-flight publishes.
func (m *MQTT) Close() {
	if m == nil || m.client == nil {
		return
	}
	m.client.Disconnect(250)
}

// EncodeSpeak renders the JSON body published for an utterance.
func EncodeSpeak(u announce.Utterance, at time.Time) ([]byte, error) {
	return json.Marshal(speakMessage{Text: u.Text, Locale: u.Locale, Rate: u.Rate, At: at})
}
