// Package influx persists processed cooling-tower results to InfluxDB.
package influx

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/ctmon/cooling-tower/internal/process"
)

const measurement = "cooling_tower"

// Writer writes processed results to InfluxDB.
type Writer struct {
	client influxdb2.Client
	api    api.WriteAPIBlocking
}

// NewWriter creates an InfluxDB write API client. Caller should call Close when done.
func NewWriter(url, token, org, bucket string) *Writer {
	client := influxdb2.NewClient(url, token)
	return &Writer{client: client, api: client.WriteAPIBlocking(org, bucket)}
}

// Close releases the InfluxDB client.
func (w *Writer) Close() {
	w.client.Close()
}

// Health checks that InfluxDB is reachable and the token is valid.
func (w *Writer) Health(ctx context.Context) error {
	_, err := w.client.Health(ctx)
	return err
}

// Write saves one processed result. Point time is the processing time;
// the device uptime timestamp is stored as a field since it is not wall
// clock. Nulled figures are simply omitted from the point.
func (w *Writer) Write(ctx context.Context, r process.Result) error {
	pointTime := r.ProcessedAt
	if pointTime.IsZero() {
		pointTime = time.Now()
	}
	p := influxdb2.NewPointWithMeasurement(measurement).
		AddTag("device_id", r.DeviceID).
		AddTag("data_quality", string(r.DataQuality)).
		AddField("water_flow_lpm", r.WaterFlowLPM).
		AddField("water_temp_in", r.WaterTempIn).
		AddField("water_temp_out", r.WaterTempOut).
		AddField("air_temp_in", r.AirTempIn).
		AddField("air_humidity_in", r.AirHumidityIn).
		AddField("cooling_range", r.CoolingRange).
		AddField("calculation_error_count", len(r.CalculationErrors)).
		SetTime(pointTime)

	if r.Timestamp != nil {
		p.AddField("device_uptime_ms", *r.Timestamp)
	}
	if r.WetBulbTempIn != nil {
		p.AddField("wet_bulb_temp_in", *r.WetBulbTempIn)
	}
	if r.CoolingEfficiency != nil {
		p.AddField("cooling_efficiency", *r.CoolingEfficiency)
	}
	if r.CoolingCapacityKW != nil {
		p.AddField("cooling_capacity", *r.CoolingCapacityKW)
	}
	if r.ApproachTemp != nil {
		p.AddField("approach_temp", *r.ApproachTemp)
	}

	if err := w.api.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	return nil
}
