package process

import (
	"fmt"
	"time"

	"github.com/ctmon/cooling-tower/internal/telemetry"
)

// Result holds the computed figures for one telemetry message.
// Calculation failures null the affected figure and append to
// CalculationErrors rather than failing the whole message.
type Result struct {
	DeviceID    string    `json:"device_id"`
	Timestamp   *int64    `json:"timestamp,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`

	WaterFlowLPM  float64 `json:"water_flow_lpm"`
	WaterTempIn   float64 `json:"water_temp_in"`
	WaterTempOut  float64 `json:"water_temp_out"`
	AirTempIn     float64 `json:"air_temp_in"`
	AirHumidityIn float64 `json:"air_humidity_in"`

	WetBulbTempIn     *float64 `json:"wet_bulb_temp_in"`
	CoolingEfficiency *float64 `json:"cooling_efficiency"`
	CoolingCapacityKW *float64 `json:"cooling_capacity"`
	ApproachTemp      *float64 `json:"approach_temp"`
	CoolingRange      float64  `json:"cooling_range"`

	DataQuality       Quality  `json:"data_quality"`
	CalculationErrors []string `json:"calculation_errors"`
	Status            string   `json:"processing_status"`
}

// Process derives performance figures from a validated message.
// The caller is expected to have checked m.Valid(); Process returns an
// error only when a required field is absent.
func Process(m telemetry.Message, receivedAt time.Time) (Result, error) {
	flow, ok := m.Flow()
	if !ok {
		return Result{}, fmt.Errorf("process: message has no flow field")
	}
	if m.WaterTempInlet == nil || m.WaterTempOutlet == nil || m.AirTempInlet == nil || m.AirHumidityInlet == nil {
		return Result{}, fmt.Errorf("process: message missing temperature or humidity fields")
	}

	r := Result{
		DeviceID:      m.Device(),
		Timestamp:     m.Timestamp,
		ProcessedAt:   receivedAt,
		WaterFlowLPM:  flow,
		WaterTempIn:   *m.WaterTempInlet,
		WaterTempOut:  *m.WaterTempOutlet,
		AirTempIn:     *m.AirTempInlet,
		AirHumidityIn: *m.AirHumidityInlet,
	}

	r.DataQuality = AssessQuality(r.WaterTempIn, r.WaterTempOut, r.WaterFlowLPM, r.AirHumidityIn)
	r.CoolingRange = CoolingRange(r.WaterTempIn, r.WaterTempOut)

	wb, err := WetBulbStull(r.AirTempIn, r.AirHumidityIn)
	if err != nil {
		r.CalculationErrors = append(r.CalculationErrors, fmt.Sprintf("wet_bulb_calculation_error: %v", err))
	} else {
		r.WetBulbTempIn = &wb
		approach := ApproachTemp(r.WaterTempOut, wb)
		r.ApproachTemp = &approach
	}

	if r.WetBulbTempIn != nil {
		eff, err := CoolingEfficiency(r.WaterTempIn, r.WaterTempOut, *r.WetBulbTempIn)
		if err != nil {
			r.CalculationErrors = append(r.CalculationErrors, fmt.Sprintf("cooling_efficiency_calculation_error: %v", err))
		} else {
			r.CoolingEfficiency = &eff
		}
	} else {
		r.CalculationErrors = append(r.CalculationErrors, "cooling_efficiency_calculation_error: wet bulb temperature unavailable")
	}

	capKW, err := CoolingCapacity(r.WaterFlowLPM, r.WaterTempIn, r.WaterTempOut)
	if err != nil {
		r.CalculationErrors = append(r.CalculationErrors, fmt.Sprintf("cooling_capacity_calculation_error: %v", err))
	} else {
		r.CoolingCapacityKW = &capKW
	}

	if len(r.CalculationErrors) == 0 {
		r.Status = "success"
	} else {
		r.Status = "partial_success"
	}
	return r, nil
}
