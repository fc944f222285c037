package speech

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"stationconsole/announce"
)

type stubToken struct {
	done chan struct{}
	err  error
}

func (t *stubToken) Wait() bool {
	<-t.done
	return true
}

func (t *stubToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *stubToken) Done() <-chan struct{} { return t.done }
func (t *stubToken) Error() error          { return t.err }

// stubClient overrides the calls MQTT makes; the embedded interface is nil.
type stubClient struct {
	mqtt.Client
	token *stubToken

	mu     sync.Mutex
	topics []string
}

func (c *stubClient) IsConnectionOpen() bool { return true }

func (c *stubClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	c.topics = append(c.topics, topic)
	c.mu.Unlock()
	return c.token
}

func (c *stubClient) published() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.topics...)
}

type logSink struct {
	lines chan string
}

func (l logSink) logf(format string, args ...any) {
	select {
	case l.lines <- fmt.Sprintf(format, args...):
	default:
	}
}

func TestMQTTPublishDoesNotWaitForBroker(t *testing.T) {
	client := &stubClient{token: &stubToken{done: make(chan struct{})}}
	logs := logSink{lines: make(chan string, 4)}
	m := &MQTT{client: client, topic: "radio", logf: logs.logf}

	start := time.Now()
	if err := m.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := m.Speak(announce.Utterance{Text: "x", Locale: "en-US", Rate: 0.9}); err != nil {
		t.Fatalf("speak: %v", err)
	}
	if elapsed := time.Since(start); elapsed > publishTimeout/2 {
		t.Fatalf("expected publish to return without waiting, took %s", elapsed)
	}
	if got := strings.Join(client.published(), ","); got != "radio/cancel,radio/speak" {
		t.Fatalf("unexpected topics %q", got)
	}
	close(client.token.done)
}

func TestMQTTPublishFailureIsLogged(t *testing.T) {
	done := make(chan struct{})
	close(done)
	client := &stubClient{token: &stubToken{done: done, err: errors.New("not authorized")}}
	logs := logSink{lines: make(chan string, 4)}
	m := &MQTT{client: client, topic: "radio", logf: logs.logf}

	if err := m.Speak(announce.Utterance{Text: "x"}); err != nil {
		t.Fatalf("speak should not report delivery errors, got %v", err)
	}
	select {
	case line := <-logs.lines:
		if !strings.Contains(line, "radio/speak failed: not authorized") {
			t.Fatalf("unexpected log line %q", line)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected publish failure to be logged")
	}
}
