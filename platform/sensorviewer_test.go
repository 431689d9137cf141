package platform

import (
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	c "lautenbacher.net/parkleds/config"
	"lautenbacher.net/parkleds/sensor"
)

func TestCalculateStats(t *testing.T) {
	data := []int{50, 10, 40, 20, 30}

	stats := calculateStats(data)

	expectedStdDev := math.Sqrt(200)
	if stats.min != 10 {
		t.Errorf("Expected min to be 10, got %d", stats.min)
	}
	if stats.max != 50 {
		t.Errorf("Expected max to be 50, got %d", stats.max)
	}
	if stats.mean != 30.0 {
		t.Errorf("Expected mean to be 30.00, got %.2f", stats.mean)
	}
	if stats.median != 30.0 {
		t.Errorf("Expected median to be 30.00, got %.2f", stats.median)
	}
	if math.Abs(stats.stdDev-expectedStdDev) > 1e-9 {
		t.Errorf("Expected stdDev to be %.2f, got %.2f", expectedStdDev, stats.stdDev)
	}
	if data[0] != 50 {
		t.Errorf("Input must not be reordered, got %v", data)
	}
}

func TestCalculateStats_Empty(t *testing.T) {
	stats := calculateStats([]int{})
	if stats != (sensorStats{}) {
		t.Errorf("Expected all stats to be 0 for empty data, got %+v", stats)
	}
}

func TestCalculateStats_EvenLength(t *testing.T) {
	stats := calculateStats([]int{10, 20, 30, 40})
	if stats.median != 25.0 {
		t.Errorf("Expected median for even length data to be 25.00, got %.2f", stats.median)
	}
}

func TestMeasurementViewer_Record(t *testing.T) {
	mv := NewMeasurementViewer(c.Default().Sensor, make(chan os.Signal, 1))

	mv.record(sensor.Measurement{DistanceMM: 1000, TimestampUs: 1, Status: sensor.StatusOK})
	mv.record(sensor.Measurement{DistanceMM: 1200, TimestampUs: 2, Status: sensor.StatusOK})
	mv.record(sensor.Measurement{TimestampUs: 3, Status: sensor.StatusTimeout})
	mv.record(sensor.Measurement{DistanceMM: 60, TimestampUs: 4, Status: sensor.StatusOutOfRange})

	assert.Equal(t, 2, mv.history.Len(), "only valid distances enter the history")
	assert.Equal(t, 2, mv.counts[sensor.StatusOK])
	assert.Equal(t, 1, mv.counts[sensor.StatusTimeout])
	assert.Equal(t, 1, mv.counts[sensor.StatusOutOfRange])

	text := mv.prepareDisplayText()
	assert.Contains(t, text, "[1000|1100|1200]")
	assert.Contains(t, text, "OK:[-] 2")
	assert.Contains(t, text, "TIMEOUT:[-] 1")
	assert.Contains(t, text, "NO_ECHO:[-] 0")
}

func TestMeasurementViewer_HistoryIsBounded(t *testing.T) {
	mv := NewMeasurementViewer(c.Default().Sensor, make(chan os.Signal, 1))
	for i := range maxMeasurementHistory + 10 {
		mv.record(sensor.Measurement{DistanceMM: uint16(i), Status: sensor.StatusOK})
	}
	assert.Equal(t, maxMeasurementHistory, mv.history.Len())
	assert.Equal(t, 10, mv.history.Front())
}
