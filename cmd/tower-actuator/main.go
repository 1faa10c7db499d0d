// Command tower-actuator drives the heater relay from cooling-tower
// telemetry. It runs a single-threaded control loop: service the broker
// session, ingest telemetry, evaluate the flow interlock and the burst
// duty cycle, then write the relay.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ctmon/cooling-tower/internal/command"
	"github.com/ctmon/cooling-tower/internal/config"
	"github.com/ctmon/cooling-tower/internal/conn"
	"github.com/ctmon/cooling-tower/internal/control"
	"github.com/ctmon/cooling-tower/internal/gpio"
	"github.com/ctmon/cooling-tower/internal/logger"
	"github.com/ctmon/cooling-tower/internal/status"
	"github.com/ctmon/cooling-tower/internal/telemetry"
	"github.com/ctmon/cooling-tower/internal/web"
)

func main() {
	confDir := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.Load(*confDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	log := logger.Get(cfg.Log.Level)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Errorw("fatal", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	actuator, err := gpio.NewRealActuator(cfg.GPIO.Chip, cfg.GPIO.RelayPin, cfg.GPIO.IndicatorPin)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer actuator.Close()

	assoc := conn.NewAssocFSM(conn.NewInterfaceLink(cfg.Net.Interface), conn.AssocConfig{
		CheckInterval:  time.Duration(cfg.Net.CheckIntervalMs) * time.Millisecond,
		ConnectTimeout: time.Duration(cfg.Net.ConnectTimeoutMs) * time.Millisecond,
		PortalTimeout:  time.Duration(cfg.Net.PortalTimeoutMs) * time.Millisecond,
	}, log)

	session := conn.NewSession(conn.SessionConfig{
		BrokerURL:         cfg.MQTT.Broker,
		Username:          cfg.MQTT.Username,
		Password:          cfg.MQTT.Password,
		ClientIDPrefix:    "tower-actuator",
		Topic:             cfg.MQTT.Topic,
		ReconnectInterval: time.Duration(cfg.Net.ReconnectIntervalMs) * time.Millisecond,
		ConnectTimeout:    time.Duration(cfg.Net.ConnectTimeoutMs) * time.Millisecond,
	}, log)

	controller := control.New(control.Config{
		WindowLength:     time.Duration(cfg.Control.WindowMs) * time.Millisecond,
		FlowTimeout:      time.Duration(cfg.Control.FlowTimeoutMs) * time.Millisecond,
		DefaultDuty:      cfg.Control.DutyPercent,
		DefaultThreshold: cfg.Control.ThresholdLPM,
		StartEnabled:     cfg.Control.StartEnabled,
	})

	tracker := status.NewTracker(time.Now(), status.Config{
		LoopMs:        int64(cfg.Control.LoopMs),
		WindowMs:      int64(cfg.Control.WindowMs),
		FlowTimeoutMs: int64(cfg.Control.FlowTimeoutMs),
		Broker:        cfg.MQTT.Broker,
		Topic:         cfg.MQTT.Topic,
		DeviceID:      cfg.Device.ID,
		PeerID:        cfg.Device.PeerID,
		HTTPAddr:      cfg.HTTP.Addr,
	})

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorw("http server", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infow("http status server listening", "addr", cfg.HTTP.Addr)
	}

	log.Infow("started",
		"loop_ms", cfg.Control.LoopMs,
		"window_ms", cfg.Control.WindowMs,
		"duty", cfg.Control.DutyPercent,
		"threshold_lpm", cfg.Control.ThresholdLPM,
		"broker", cfg.MQTT.Broker,
		"peer", cfg.Device.PeerID)

	ticker := time.NewTicker(time.Duration(cfg.Control.LoopMs) * time.Millisecond)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	deps := loopDeps{
		session:    session,
		assoc:      assoc,
		actuator:   actuator,
		controller: controller,
		commands:   command.NewReader(os.Stdin),
		tracker:    tracker,
		out:        os.Stdout,
		log:        log,
	}
	lc := loopConfig{
		peerID:       cfg.Device.PeerID,
		flowTimeout:  time.Duration(cfg.Control.FlowTimeoutMs) * time.Millisecond,
		indicatorLen: time.Duration(cfg.Control.IndicatorMs) * time.Millisecond,
	}
	return runLoop(deps, lc, time.Now, ticker.C, sigCh)
}

// brokerSession and associator are the loop's view of the connectivity
// FSMs, narrowed for testing.
type brokerSession interface {
	Service(now time.Time, associated bool) conn.State
	Drain() []conn.Inbound
	Close()
}

type associator interface {
	Service(now time.Time) conn.AssocState
	State() conn.AssocState
}

type commandSource interface {
	Drain() []string
}

type loopDeps struct {
	session    brokerSession
	assoc      associator
	actuator   gpio.Actuator
	controller *control.Controller
	commands   commandSource
	tracker    *status.Tracker
	out        io.Writer
	log        *logger.Logger
}

type loopConfig struct {
	peerID       string
	flowTimeout  time.Duration
	indicatorLen time.Duration
}

func runLoop(d loopDeps, lc loopConfig, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	assocState := d.assoc.State()
	prevAssoc := assocState
	prevInterlock := false
	relayOn := false
	indicatorOn := false
	var indicatorUntil time.Time

	for {
		select {
		case s := <-sig:
			d.log.Infow("shutting down", "signal", s)
			// Relay off is the one hard guarantee on exit.
			if err := d.actuator.SetRelay(false); err != nil {
				d.log.Errorw("relay off on shutdown", "err", err)
			}
			d.actuator.SetIndicator(false)
			d.session.Close()
			return nil

		case <-tick:
			t := now()

			// The broker session is serviced before anything else so an
			// established session is never starved by control work.
			sessState := d.session.Service(t, assocState == conn.Associated)

			for _, in := range d.session.Drain() {
				reading, err := telemetry.Decode(in.Payload, lc.peerID, t)
				if err != nil {
					switch {
					case errors.Is(err, telemetry.ErrDeviceMismatch):
						d.tracker.CountError(status.KindDeviceMismatch)
					default:
						d.tracker.CountError(status.KindMalformedTelemetry)
					}
					d.log.Debugw("telemetry dropped", "err", err)
					continue
				}
				d.controller.Accept(reading)
				indicatorUntil = t.Add(lc.indicatorLen)
			}

			assocState = d.assoc.Service(t)
			if assocState == conn.PortalActive && prevAssoc != conn.PortalActive {
				d.tracker.CountError(status.KindConnectivityTimeout)
			}
			prevAssoc = assocState

			interlock := d.controller.InterlockEnabled(t)
			if prevInterlock && !interlock {
				if lf, ok := d.controller.LastFlow(); ok && t.Sub(lf.ReceivedAt) > lc.flowTimeout {
					d.tracker.CountError(status.KindStaleTelemetry)
					d.log.Warnw("telemetry stale, interlock disabled", "age", t.Sub(lf.ReceivedAt))
				}
			}
			prevInterlock = interlock

			want := d.controller.Tick(t)
			if want != relayOn {
				if err := d.actuator.SetRelay(want); err != nil {
					d.log.Errorw("relay write", "err", err)
				} else {
					relayOn = want
					d.log.Infow("relay", "on", relayOn)
				}
			}

			wantInd := t.Before(indicatorUntil)
			if wantInd != indicatorOn {
				if err := d.actuator.SetIndicator(wantInd); err != nil {
					d.log.Warnw("indicator write", "err", err)
				}
				indicatorOn = wantInd
			}

			statusRequested := false
			for _, line := range d.commands.Drain() {
				cmd, err := command.Parse(line)
				if err != nil {
					d.tracker.CountError(status.KindInvalidCommand)
					fmt.Fprintln(d.out, command.Usage)
					continue
				}
				switch cmd.Kind {
				case command.KindOn:
					d.controller.SetEnabled(true)
					fmt.Fprintln(d.out, "heater enabled")
				case command.KindOff:
					d.controller.SetEnabled(false)
					fmt.Fprintln(d.out, "heater disabled")
				case command.KindDuty:
					applied := d.controller.SetDuty(cmd.Duty)
					fmt.Fprintf(d.out, "duty=%d%%\n", applied)
				case command.KindThreshold:
					applied := d.controller.SetThreshold(cmd.Threshold)
					fmt.Fprintf(d.out, "threshold=%.2flpm\n", applied)
				case command.KindStatus:
					statusRequested = true
				}
			}

			var lastFlow *control.FlowReading
			if lf, ok := d.controller.LastFlow(); ok {
				lastFlow = &lf
			}
			d.tracker.Update(assocState, sessState, relayOn, indicatorOn, interlock, d.controller.Intent(), lastFlow)

			if statusRequested {
				fmt.Fprintln(d.out, d.tracker.Snapshot().Line())
			}
		}
	}
}
