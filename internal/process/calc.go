// Package process computes cooling tower performance figures from
// validated telemetry.
package process

import (
	"fmt"
	"math"
)

// temperatureTolerance absorbs sensor noise when comparing inlet and
// outlet water temperatures.
const temperatureTolerance = 0.1 // degrees C

// cpWater is the specific heat of water in kJ/kg*K.
const cpWater = 4.186

// WetBulbStull estimates the wet-bulb temperature from dry-bulb
// temperature and relative humidity using the Stull (2011) fit.
func WetBulbStull(tempC, relHumidity float64) (float64, error) {
	if relHumidity < 0 || relHumidity > 100 {
		return 0, fmt.Errorf("relative humidity must be between 0-100%%, got %g%%", relHumidity)
	}
	if tempC < -50 || tempC > 60 {
		return 0, fmt.Errorf("temperature must be between -50C and 60C, got %gC", tempC)
	}

	t, rh := tempC, relHumidity
	tw := t*math.Atan(0.151977*math.Sqrt(rh+8.313659)) +
		math.Atan(t+rh) -
		math.Atan(rh-1.676331) +
		0.00391838*math.Pow(rh, 1.5)*math.Atan(0.023101*rh) -
		4.686035
	return tw, nil
}

// CoolingEfficiency returns the tower efficiency in percent.
//
// Efficiency is (Tin - Tout) / (Tin - Twb) * 100, clamped to [0, 100].
// A delta within the sensor tolerance reads as no cooling (0%), and an
// inlet at or below the wet-bulb temperature also yields 0%.
func CoolingEfficiency(waterTempIn, waterTempOut, wetBulbIn float64) (float64, error) {
	deltaT := waterTempIn - waterTempOut
	if deltaT < -temperatureTolerance {
		return 0, fmt.Errorf("water inlet temperature (%gC) must not be below outlet (%gC), difference %.3fC", waterTempIn, waterTempOut, deltaT)
	}
	if math.Abs(deltaT) <= temperatureTolerance {
		return 0, nil
	}
	if waterTempIn <= wetBulbIn {
		return 0, nil
	}

	eff := deltaT / (waterTempIn - wetBulbIn) * 100
	if eff < 0 {
		eff = 0
	} else if eff > 100 {
		eff = 100
	}
	return eff, nil
}

// CoolingCapacity returns the heat rejection rate in kW for the given
// water flow (L/min) and inlet/outlet temperatures.
func CoolingCapacity(waterFlowLPM, waterTempIn, waterTempOut float64) (float64, error) {
	if waterFlowLPM <= 0 {
		return 0, fmt.Errorf("water flow must be positive, got %g L/min", waterFlowLPM)
	}
	deltaT := waterTempIn - waterTempOut
	if deltaT < -temperatureTolerance {
		return 0, fmt.Errorf("water inlet temperature (%gC) must not be below outlet (%gC), difference %.3fC", waterTempIn, waterTempOut, deltaT)
	}
	if math.Abs(deltaT) <= temperatureTolerance {
		return 0, nil
	}

	// L/min of water is kg/min; divide by 60 for kg/s.
	flowKgS := waterFlowLPM / 60
	return flowKgS * cpWater * deltaT, nil
}

// ApproachTemp is the difference between the cooled water temperature
// and the entering air wet-bulb temperature.
func ApproachTemp(waterTempOut, wetBulbIn float64) float64 {
	return waterTempOut - wetBulbIn
}

// CoolingRange is the temperature drop across the tower.
func CoolingRange(waterTempIn, waterTempOut float64) float64 {
	return waterTempIn - waterTempOut
}

// Quality grades a reading for downstream consumers.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
)

// AssessQuality scores a reading on temperature delta, flow and
// humidity plausibility.
func AssessQuality(waterTempIn, waterTempOut, waterFlowLPM, airHumidityIn float64) Quality {
	score := 0

	deltaT := math.Abs(waterTempIn - waterTempOut)
	switch {
	case deltaT > 1.0:
		score += 3
	case deltaT > 0.5:
		score += 2
	case deltaT > 0.1:
		score += 1
	}

	switch {
	case waterFlowLPM > 1.0:
		score += 2
	case waterFlowLPM > 0.1:
		score += 1
	}

	switch {
	case airHumidityIn >= 20 && airHumidityIn <= 80:
		score += 2
	case airHumidityIn >= 10 && airHumidityIn <= 90:
		score += 1
	}

	switch {
	case score >= 6:
		return QualityExcellent
	case score >= 4:
		return QualityGood
	case score >= 2:
		return QualityFair
	default:
		return QualityPoor
	}
}
