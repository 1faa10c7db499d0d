// Command tower-backend subscribes to cooling-tower telemetry, derives
// the performance figures and writes them to InfluxDB. It announces its
// own liveness on a retained status topic.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/ctmon/cooling-tower/internal/config"
	"github.com/ctmon/cooling-tower/internal/influx"
	"github.com/ctmon/cooling-tower/internal/logger"
	"github.com/ctmon/cooling-tower/internal/process"
	"github.com/ctmon/cooling-tower/internal/telemetry"
)

// stats are written from paho's handler goroutine and read by the
// periodic reporter.
type stats struct {
	received  atomic.Uint64
	processed atomic.Uint64
	failed    atomic.Uint64
}

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
	writer := influx.NewWriter(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket)
	defer writer.Close()

	healthCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err := writer.Health(healthCtx)
	cancel()
	if err != nil {
		// Degraded start is fine; the broker buffers nothing for us but
		// the write path retries per message.
		log.Warnw("influx health check failed", "url", cfg.Influx.URL, "err", err)
	}

	var st stats
	statusTopic := cfg.MQTT.StatusTopic

	opts := paho.NewClientOptions().
		AddBroker(cfg.MQTT.Broker).
		SetClientID(fmt.Sprintf("tower-backend-%s", uuid.NewString()[:8])).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(statusTopic, "offline", 1, true).
		SetOnConnectHandler(func(c paho.Client) {
			// Re-subscribe on every (re)connect; paho does not restore
			// subscriptions for clean sessions.
			token := c.Subscribe(cfg.MQTT.Topic, 1, func(_ paho.Client, msg paho.Message) {
				handleMessage(msg.Payload(), writer, &st, log)
			})
			if token.Wait() && token.Error() != nil {
				log.Errorw("subscribe", "topic", cfg.MQTT.Topic, "err", token.Error())
				return
			}
			c.Publish(statusTopic, 1, true, "online")
			log.Infow("subscribed", "topic", cfg.MQTT.Topic)
		})
	if cfg.MQTT.Username != "" {
		opts.SetUsername(cfg.MQTT.Username).SetPassword(cfg.MQTT.Password)
	}

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}

	log.Infow("started", "broker", cfg.MQTT.Broker, "topic", cfg.MQTT.Topic, "influx", cfg.Influx.URL)

	statsTicker := time.NewTicker(5 * time.Minute)
	defer statsTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case s := <-sigCh:
			log.Infow("shutting down", "signal", s)
			if token := client.Publish(statusTopic, 1, true, "offline"); token.WaitTimeout(2 * time.Second) {
				if err := token.Error(); err != nil {
					log.Warnw("offline status publish", "err", err)
				}
			}
			client.Disconnect(250)
			logStats(&st, log)
			return nil

		case <-statsTicker.C:
			if st.received.Load() > 0 {
				logStats(&st, log)
			}
		}
	}
}

func handleMessage(payload []byte, writer *influx.Writer, st *stats, log *logger.Logger) {
	st.received.Add(1)

	msg, err := telemetry.Parse(payload)
	if err != nil {
		st.failed.Add(1)
		log.Debugw("telemetry dropped", "err", err)
		return
	}
	if !msg.Valid() {
		st.failed.Add(1)
		log.Debugw("telemetry rejected by validation", "device", msg.Device())
		return
	}

	result, err := process.Process(msg, time.Now())
	if err != nil {
		st.failed.Add(1)
		log.Warnw("process", "device", msg.Device(), "err", err)
		return
	}
	if len(result.CalculationErrors) > 0 {
		log.Infow("processed with calculation errors",
			"device", result.DeviceID,
			"quality", result.DataQuality,
			"errors", result.CalculationErrors)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := writer.Write(ctx, result); err != nil {
		// Database trouble is not a processing failure; the figure was
		// computed, only persistence lagged.
		log.Warnw("influx write", "device", result.DeviceID, "err", err)
	}
	st.processed.Add(1)
}

func logStats(st *stats, log *logger.Logger) {
	log.Infow("stats",
		"received", st.received.Load(),
		"processed", st.processed.Load(),
		"failed", st.failed.Load())
}
