package core

import (
	"math"
	"testing"
)

func TestMetricsRollingAverageAndFPS(t *testing.T) {
	if err := MetricsInitialize(); err != nil {
		t.Fatal(err)
	}
	MetricsReset()

	// 10ms frames: the accumulator crosses one second on the 101st
	// update, latching the 100 frames counted before it.
	for i := 0; i < 101; i++ {
		MetricsUpdate(0.010)
	}

	fps, avg := MetricsFrame()
	if fps != 100 {
		t.Errorf("fps = %f, want 100", fps)
	}
	if math.Abs(avg-10.0) > 1e-9 {
		t.Errorf("avg frame time = %f ms, want 10", avg)
	}
}

func TestMetricsResetClears(t *testing.T) {
	if err := MetricsInitialize(); err != nil {
		t.Fatal(err)
	}
	MetricsUpdate(0.016)
	MetricsReset()

	if fps, avg := MetricsFrame(); fps != 0 || avg != 0 {
		t.Errorf("after reset fps = %f, avg = %f, want zeros", fps, avg)
	}
}
