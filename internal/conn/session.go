package conn

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/ctmon/cooling-tower/internal/logger"
)

// Inbound is one message received on the subscribed topic, handed to the
// control loop by Drain.
type Inbound struct {
	Topic   string
	Payload []byte
}

// SessionConfig holds broker session tunables.
type SessionConfig struct {
	BrokerURL      string // tcp:// or ssl://
	Username       string
	Password       string
	ClientIDPrefix string // a random suffix is appended per attempt
	Topic          string // telemetry topic to subscribe to
	// ReconnectInterval is the fixed attempt cadence. No backoff: repeated
	// failures throttle to this rate and nothing more.
	ReconnectInterval time.Duration
	ConnectTimeout    time.Duration
}

// brokerClient is the subset of paho.Client the session drives. Narrowed
// for testability.
type brokerClient interface {
	IsConnected() bool
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	Disconnect(quiesce uint)
}

// connectFn starts one connection attempt and returns the client plus its
// pending connect token. It must not block.
type connectFn func(clientID string, onMessage paho.MessageHandler) (brokerClient, paho.Token)

// Session is the non-blocking broker session FSM. The control loop calls
// Service first thing every iteration — unconditionally — so an established
// session is never starved, then Drain to collect inbound telemetry.
type Session struct {
	cfg     SessionConfig
	log     *logger.Logger
	connect connectFn
	timer   ReconnectTimer

	state        State
	client       brokerClient
	connectToken paho.Token
	subToken     paho.Token
	attemptStart time.Time

	inbound chan Inbound
}

// NewSession creates a broker session FSM over paho.
func NewSession(cfg SessionConfig, log *logger.Logger) *Session {
	s := newSession(cfg, log)
	s.connect = func(clientID string, onMessage paho.MessageHandler) (brokerClient, paho.Token) {
		opts := paho.NewClientOptions().
			AddBroker(cfg.BrokerURL).
			SetClientID(clientID).
			SetCleanSession(true).
			SetAutoReconnect(false). // this FSM owns reconnection
			SetConnectRetry(false).
			SetConnectTimeout(cfg.ConnectTimeout).
			SetDefaultPublishHandler(onMessage)
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
		}
		c := paho.NewClient(opts)
		return c, c.Connect()
	}
	return s
}

func newSession(cfg SessionConfig, log *logger.Logger) *Session {
	return &Session{
		cfg:     cfg,
		log:     log,
		timer:   NewReconnectTimer(cfg.ReconnectInterval),
		inbound: make(chan Inbound, 64),
	}
}

// State returns the session state. Connecting counts as not Connected.
func (s *Session) State() State {
	return s.state
}

// Service advances the session FSM. associated gates new attempts; an
// existing session is serviced regardless.
func (s *Session) Service(now time.Time, associated bool) State {
	switch s.state {
	case Connected:
		if s.subToken != nil && s.subToken.WaitTimeout(0) {
			err := s.subToken.Error()
			s.subToken = nil
			if err != nil {
				s.log.Warnw("subscribe failed, dropping session", "topic", s.cfg.Topic, "err", err)
				s.teardown()
				return s.state
			}
			s.log.Infow("subscribed", "topic", s.cfg.Topic)
		}
		if s.client == nil || !s.client.IsConnected() {
			s.log.Warnw("broker session lost")
			s.teardown()
		}

	case Connecting:
		if !s.connectToken.WaitTimeout(0) {
			// Attempt still in flight; the paho connect timeout bounds it,
			// this is the belt for clients that never resolve the token.
			if now.Sub(s.attemptStart) >= 2*s.cfg.ConnectTimeout {
				s.log.Warnw("connect attempt abandoned", "after", now.Sub(s.attemptStart))
				s.teardown()
			}
			return s.state
		}
		err := s.connectToken.Error()
		s.connectToken = nil
		if err != nil {
			s.log.Warnw("broker connect failed", "broker", s.cfg.BrokerURL, "err", err)
			s.teardown()
			return s.state
		}
		// Session up: re-issue the telemetry subscription every time.
		s.subToken = s.client.Subscribe(s.cfg.Topic, 0, s.onMessage)
		s.state = Connected
		s.log.Infow("broker session established", "broker", s.cfg.BrokerURL)

	case Disconnected:
		if !associated || !s.timer.Ready(now) {
			return s.state
		}
		s.timer.Mark(now)
		// Random session identity per attempt avoids broker-side client ID
		// collisions with a half-dead previous session.
		id := fmt.Sprintf("%s-%s", s.cfg.ClientIDPrefix, uuid.NewString()[:8])
		s.client, s.connectToken = s.connect(id, s.onMessage)
		s.attemptStart = now
		s.state = Connecting
		s.log.Debugw("broker connect attempt", "client_id", id)
	}
	return s.state
}

// Drain returns all inbound messages received since the last call, never
// blocking.
func (s *Session) Drain() []Inbound {
	var out []Inbound
	for {
		select {
		case m := <-s.inbound:
			out = append(out, m)
		default:
			return out
		}
	}
}

// Close tears down any live session.
func (s *Session) Close() {
	s.teardown()
}

func (s *Session) teardown() {
	if s.client != nil {
		s.client.Disconnect(250)
		s.client = nil
	}
	s.connectToken = nil
	s.subToken = nil
	s.state = Disconnected
}

// onMessage runs on paho's goroutine; it only enqueues. A full queue drops
// the message — the loop drains every iteration, and stale telemetry is
// handled by the interlock timeout anyway.
func (s *Session) onMessage(_ paho.Client, msg paho.Message) {
	select {
	case s.inbound <- Inbound{Topic: msg.Topic(), Payload: msg.Payload()}:
	default:
	}
}
