package sensor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctmon/cooling-tower/internal/telemetry"
)

// SysfsReader reads the water probes from the 1-wire sysfs interface
// (DS18B20 via the w1_therm kernel driver) and the air sensor from an
// iio device directory. Any field it cannot read comes back as the
// sentinel; Read itself never fails.
type SysfsReader struct {
	WaterInPath     string // w1_slave file of the inlet probe
	WaterOutPath    string // w1_slave file of the outlet probe
	AirTempPath     string // iio in_temp_input, millidegrees C
	AirHumidityPath string // iio in_humidityrelative_input, milli-percent
}

// NewSysfsReader composes the standard sysfs paths from the 1-wire
// device ids and the iio device directory. Empty ids or dir leave the
// corresponding fields unfitted.
func NewSysfsReader(waterInID, waterOutID, iioDir string) *SysfsReader {
	r := &SysfsReader{}
	if waterInID != "" {
		r.WaterInPath = filepath.Join("/sys/bus/w1/devices", waterInID, "w1_slave")
	}
	if waterOutID != "" {
		r.WaterOutPath = filepath.Join("/sys/bus/w1/devices", waterOutID, "w1_slave")
	}
	if iioDir != "" {
		r.AirTempPath = filepath.Join(iioDir, "in_temp_input")
		r.AirHumidityPath = filepath.Join(iioDir, "in_humidityrelative_input")
	}
	return r
}

func (r *SysfsReader) Read() (Sample, error) {
	return Sample{
		WaterTempIn:   readOrSentinel(r.WaterInPath, readW1Temp),
		WaterTempOut:  readOrSentinel(r.WaterOutPath, readW1Temp),
		AirTempIn:     readOrSentinel(r.AirTempPath, readIIOMilli),
		AirHumidityIn: readOrSentinel(r.AirHumidityPath, readIIOMilli),
	}, nil
}

func readOrSentinel(path string, read func(string) (float64, error)) float64 {
	if path == "" {
		return telemetry.Sentinel
	}
	v, err := read(path)
	if err != nil {
		return telemetry.Sentinel
	}
	return v
}

// readW1Temp parses the w1_slave format:
//
//	4b 01 4b 46 7f ff 0c 10 d8 : crc=d8 YES
//	4b 01 4b 46 7f ff 0c 10 d8 t=20687
func readW1Temp(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 2 {
		return 0, fmt.Errorf("w1: short read from %s", path)
	}
	if !strings.HasSuffix(strings.TrimSpace(lines[0]), "YES") {
		return 0, fmt.Errorf("w1: crc check failed in %s", path)
	}
	idx := strings.LastIndex(lines[1], "t=")
	if idx < 0 {
		return 0, fmt.Errorf("w1: no temperature in %s", path)
	}
	milli, err := strconv.Atoi(strings.TrimSpace(lines[1][idx+2:]))
	if err != nil {
		return 0, fmt.Errorf("w1: parse %s: %w", path, err)
	}
	return float64(milli) / 1000, nil
}

// readIIOMilli reads a single milli-scaled integer, the format of iio
// *_input attributes.
func readIIOMilli(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("iio: parse %s: %w", path, err)
	}
	return float64(v) / 1000, nil
}
