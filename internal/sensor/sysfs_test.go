package sensor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ctmon/cooling-tower/internal/telemetry"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const w1Good = "4b 01 4b 46 7f ff 0c 10 d8 : crc=d8 YES\n4b 01 4b 46 7f ff 0c 10 d8 t=20687\n"
const w1BadCRC = "4b 01 4b 46 7f ff 0c 10 d8 : crc=d8 NO\n4b 01 4b 46 7f ff 0c 10 d8 t=20687\n"

func TestSysfsReaderFull(t *testing.T) {
	dir := t.TempDir()
	r := &SysfsReader{
		WaterInPath:     writeFile(t, dir, "in", w1Good),
		WaterOutPath:    writeFile(t, dir, "out", "xx : crc=aa YES\nxx t=18312\n"),
		AirTempPath:     writeFile(t, dir, "temp", "28600\n"),
		AirHumidityPath: writeFile(t, dir, "hum", "49500\n"),
	}

	s, err := r.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if s.WaterTempIn != 20.687 {
		t.Errorf("water in: got %g, want 20.687", s.WaterTempIn)
	}
	if s.WaterTempOut != 18.312 {
		t.Errorf("water out: got %g, want 18.312", s.WaterTempOut)
	}
	if s.AirTempIn != 28.6 {
		t.Errorf("air temp: got %g, want 28.6", s.AirTempIn)
	}
	if s.AirHumidityIn != 49.5 {
		t.Errorf("humidity: got %g, want 49.5", s.AirHumidityIn)
	}
}

func TestSysfsReaderFaults(t *testing.T) {
	dir := t.TempDir()
	r := &SysfsReader{
		WaterInPath:  writeFile(t, dir, "in", w1BadCRC),
		WaterOutPath: filepath.Join(dir, "missing"),
		// Air paths unfitted.
	}

	s, err := r.Read()
	if err != nil {
		t.Fatalf("Read must not fail on sensor faults: %v", err)
	}
	if s.WaterTempIn != telemetry.Sentinel {
		t.Errorf("crc failure should read sentinel, got %g", s.WaterTempIn)
	}
	if s.WaterTempOut != telemetry.Sentinel {
		t.Errorf("missing file should read sentinel, got %g", s.WaterTempOut)
	}
	if s.AirTempIn != telemetry.Sentinel || s.AirHumidityIn != telemetry.Sentinel {
		t.Error("unfitted sensors should read sentinel")
	}
}

func TestSysfsReaderMalformedValues(t *testing.T) {
	dir := t.TempDir()
	r := &SysfsReader{
		WaterInPath: writeFile(t, dir, "in", "xx : crc=aa YES\nxx t=not-a-number\n"),
		AirTempPath: writeFile(t, dir, "temp", "garbage\n"),
	}

	s, _ := r.Read()
	if s.WaterTempIn != telemetry.Sentinel {
		t.Errorf("unparseable w1 value should read sentinel, got %g", s.WaterTempIn)
	}
	if s.AirTempIn != telemetry.Sentinel {
		t.Errorf("unparseable iio value should read sentinel, got %g", s.AirTempIn)
	}
}

func TestNewSysfsReaderPaths(t *testing.T) {
	r := NewSysfsReader("28-0316a2795b3c", "", "/sys/bus/iio/devices/iio:device0")
	if r.WaterInPath != "/sys/bus/w1/devices/28-0316a2795b3c/w1_slave" {
		t.Errorf("water in path: %q", r.WaterInPath)
	}
	if r.WaterOutPath != "" {
		t.Errorf("unfitted probe should have empty path, got %q", r.WaterOutPath)
	}
	if r.AirHumidityPath != "/sys/bus/iio/devices/iio:device0/in_humidityrelative_input" {
		t.Errorf("humidity path: %q", r.AirHumidityPath)
	}
}
