package sensor

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/ctmon/cooling-tower/internal/logger"
	"github.com/ctmon/cooling-tower/internal/telemetry"
)

// PublisherConfig configures the telemetry publisher.
type PublisherConfig struct {
	BrokerURL string
	Username  string
	Password  string
	Topic     string
	BufferLen int
}

// Publisher sends telemetry to the broker. While the connection is
// down, payloads accumulate in a ring buffer and are replayed oldest
// first on reconnect. The sensing node keeps sampling regardless of
// broker health.
type Publisher struct {
	client paho.Client
	topic  string
	log    *logger.Logger

	mu  sync.Mutex
	buf *ringBuffer
}

// NewPublisher connects to the broker and returns a Publisher. The
// initial connect failure is not fatal: paho keeps retrying in the
// background and the ring buffer absorbs the gap.
func NewPublisher(cfg PublisherConfig, log *logger.Logger) (*Publisher, error) {
	if cfg.BufferLen <= 0 {
		cfg.BufferLen = 64
	}
	p := &Publisher{
		topic: cfg.Topic,
		log:   log,
		buf:   newRingBuffer(cfg.BufferLen),
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(fmt.Sprintf("tower-sensor-%s", uuid.NewString()[:8])).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnw("broker connection lost", "error", err)
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("connect to broker: %w", token.Error())
	}
	return p, nil
}

// Publish sends one telemetry message, buffering it if the broker is
// unreachable.
func (p *Publisher) Publish(m telemetry.Message) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode telemetry: %w", err)
	}

	if !p.client.IsConnected() {
		p.mu.Lock()
		p.buf.push(pendingMsg{topic: p.topic, payload: payload})
		n := p.buf.len()
		p.mu.Unlock()
		p.log.Debugw("broker down, telemetry buffered", "buffered", n)
		return nil
	}

	token := p.client.Publish(p.topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// onConnect replays buffered payloads after a (re)connect.
func (p *Publisher) onConnect(client paho.Client) {
	p.mu.Lock()
	dropped := p.buf.dropped
	msgs := p.buf.drainAll()
	p.mu.Unlock()

	if len(msgs) == 0 {
		p.log.Infow("broker connected")
		return
	}
	p.log.Infow("broker connected, replaying buffered telemetry",
		"buffered", len(msgs), "dropped", dropped)
	for _, m := range msgs {
		token := client.Publish(m.topic, 0, false, m.payload)
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			p.log.Warnw("replay publish failed", "error", token.Error())
			return
		}
	}
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(1000)
}
