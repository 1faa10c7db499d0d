// Command tower-sensor samples the flow meter and the temperature and
// humidity probes, then publishes one telemetry document per interval.
// Sampling never stops for broker trouble; payloads buffer and replay.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ctmon/cooling-tower/internal/config"
	"github.com/ctmon/cooling-tower/internal/gpio"
	"github.com/ctmon/cooling-tower/internal/logger"
	"github.com/ctmon/cooling-tower/internal/pulse"
	"github.com/ctmon/cooling-tower/internal/sensor"
	"github.com/ctmon/cooling-tower/internal/telemetry"
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
	counter := &pulse.Counter{}
	line, err := gpio.NewPulseLine(cfg.GPIO.Chip, cfg.GPIO.FlowPin, counter)
	if err != nil {
		return fmt.Errorf("init flow meter: %w", err)
	}
	defer line.Close()

	reader := sensor.NewSysfsReader(cfg.Sensor.WaterInID, cfg.Sensor.WaterOutID, cfg.Sensor.AirIIODir)
	if cfg.Sensor.WaterInID == "" || cfg.Sensor.WaterOutID == "" {
		log.Warnw("water probes not fully configured, fields will read as invalid")
	}

	pub, err := sensor.NewPublisher(sensor.PublisherConfig{
		BrokerURL: cfg.MQTT.Broker,
		Username:  cfg.MQTT.Username,
		Password:  cfg.MQTT.Password,
		Topic:     cfg.MQTT.Topic,
		BufferLen: cfg.Sensor.BufferLen,
	}, log)
	if err != nil {
		return fmt.Errorf("init publisher: %w", err)
	}
	defer pub.Close()

	interval := time.Duration(cfg.Sensor.PublishMs) * time.Millisecond
	log.Infow("started",
		"device", cfg.Device.ID,
		"publish_ms", cfg.Sensor.PublishMs,
		"flow_pin", cfg.GPIO.FlowPin,
		"broker", cfg.MQTT.Broker)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	start := time.Now()
	for {
		select {
		case s := <-sigCh:
			log.Infow("shutting down", "signal", s)
			return nil

		case <-ticker.C:
			pulses := counter.ReadAndReset()
			hz := float64(pulses) / interval.Seconds()
			flow := hz / telemetry.HzPerLPM

			sample, err := reader.Read()
			if err != nil {
				log.Warnw("sensor read", "err", err)
				continue
			}

			msg := sensor.BuildMessage(cfg.Device.ID, time.Since(start).Milliseconds(), flow, sample)
			if !msg.Valid() {
				// Still published: the actuator only needs the flow field
				// and the backend filters on Valid itself.
				log.Debugw("publishing degraded sample", "flow_lpm", flow)
			}
			if err := pub.Publish(msg); err != nil {
				log.Warnw("publish", "err", err)
			}
		}
	}
}
