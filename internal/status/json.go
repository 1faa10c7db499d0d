package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Network          string     `json:"network"`
	Broker           string     `json:"broker"`
	RelayOn          bool       `json:"relay_on"`
	Indicator        bool       `json:"indicator"`
	InterlockEnabled bool       `json:"interlock_enabled"`
	HeaterEnabled    bool       `json:"heater_enabled"`
	DutyPercent      int        `json:"duty_percent"`
	ThresholdLPM     float64    `json:"threshold_lpm"`
	LastFlow         *FlowJSON  `json:"last_flow,omitempty"`
	UptimeSeconds    int64      `json:"uptime_seconds"`
	StartTime        string     `json:"start_time"`
	Timestamp        string     `json:"timestamp"`
	Errors           ErrorsJSON `json:"error_counts"`
	Config           ConfigJSON `json:"config"`
}

// FlowJSON is the JSON representation of the last flow reading.
type FlowJSON struct {
	LPM        float64 `json:"lpm"`
	AgeMs      int64   `json:"age_ms"`
	DeviceID   string  `json:"device_id"`
	ReceivedAt string  `json:"received_at"`
}

// ErrorsJSON is the JSON representation of error counts.
type ErrorsJSON struct {
	ConnectivityTimeout int `json:"connectivity_timeout"`
	MalformedTelemetry  int `json:"malformed_telemetry"`
	DeviceMismatch      int `json:"device_mismatch"`
	StaleTelemetry      int `json:"stale_telemetry"`
	InvalidCommand      int `json:"invalid_command"`
}

// ConfigJSON is the JSON representation of node config.
type ConfigJSON struct {
	LoopMs        int64  `json:"loop_ms"`
	WindowMs      int64  `json:"window_ms"`
	FlowTimeoutMs int64  `json:"flow_timeout_ms"`
	Broker        string `json:"broker"`
	Topic         string `json:"topic"`
	DeviceID      string `json:"device_id"`
	PeerID        string `json:"peer_id"`
	HTTPAddr      string `json:"http_addr"`
}

// FormatJSON renders a snapshot as indented JSON.
func FormatJSON(snap Snapshot) []byte {
	inner := StatusInner{
		Network:          snap.Assoc.String(),
		Broker:           snap.Session.String(),
		RelayOn:          snap.RelayOn,
		Indicator:        snap.Indicator,
		InterlockEnabled: snap.InterlockEnabled,
		HeaterEnabled:    snap.Intent.HeaterEnabled,
		DutyPercent:      snap.Intent.DutyPercent,
		ThresholdLPM:     snap.Intent.ThresholdLPM,
		UptimeSeconds:    int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:        snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:        snap.Now.UTC().Format(time.RFC3339),
		Errors: ErrorsJSON{
			ConnectivityTimeout: snap.Errors.ConnectivityTimeout,
			MalformedTelemetry:  snap.Errors.MalformedTelemetry,
			DeviceMismatch:      snap.Errors.DeviceMismatch,
			StaleTelemetry:      snap.Errors.StaleTelemetry,
			InvalidCommand:      snap.Errors.InvalidCommand,
		},
		Config: ConfigJSON{
			LoopMs:        snap.Config.LoopMs,
			WindowMs:      snap.Config.WindowMs,
			FlowTimeoutMs: snap.Config.FlowTimeoutMs,
			Broker:        snap.Config.Broker,
			Topic:         snap.Config.Topic,
			DeviceID:      snap.Config.DeviceID,
			PeerID:        snap.Config.PeerID,
			HTTPAddr:      snap.Config.HTTPAddr,
		},
	}

	if age, ok := snap.FlowAge(); ok {
		inner.LastFlow = &FlowJSON{
			LPM:        snap.LastFlow.LPM,
			AgeMs:      age.Milliseconds(),
			DeviceID:   snap.LastFlow.DeviceID,
			ReceivedAt: snap.LastFlow.ReceivedAt.UTC().Format(time.RFC3339),
		}
	}

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}
