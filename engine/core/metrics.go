package core

import (
	"sync"

	"github.com/Fahien/vkr-go/engine/containers"
)

// Frame time average window, in frames.
const avgWindow = 30

type MetricsState struct {
	window             *containers.RingQueue[float64]
	MSavg              float64
	Frames             uint32
	AccumulatedFrameMS float64
	FPS                float64
}

var onceMetrics sync.Once
var metricsState *MetricsState = nil

func MetricsInitialize() error {
	onceMetrics.Do(func() {
		metricsState = &MetricsState{
			window: containers.NewRingQueue[float64](avgWindow),
		}
	})
	return nil
}

func MetricsUpdate(frameElapsedTime float64) {
	if metricsState == nil {
		return
	}

	// Rolling frame ms average over the window.
	frameMS := frameElapsedTime * 1000.0
	if metricsState.window.IsFull() {
		metricsState.window.Dequeue()
	}
	metricsState.window.Enqueue(frameMS)

	sum := 0.0
	metricsState.window.Each(func(ms float64) { sum += ms })
	metricsState.MSavg = sum / float64(metricsState.window.Len())

	// Calculate frames per second.
	metricsState.AccumulatedFrameMS += frameMS
	if metricsState.AccumulatedFrameMS > 1000 {
		metricsState.FPS = float64(metricsState.Frames)
		metricsState.AccumulatedFrameMS -= 1000
		metricsState.Frames = 0
	}

	// Count all frames.
	metricsState.Frames++
}

// MetricsReset clears the window and counters so frame times recorded
// before a suspend do not skew the average after resuming.
func MetricsReset() {
	if metricsState == nil {
		return
	}
	for !metricsState.window.IsEmpty() {
		metricsState.window.Dequeue()
	}
	metricsState.MSavg = 0
	metricsState.Frames = 0
	metricsState.AccumulatedFrameMS = 0
	metricsState.FPS = 0
}

func MetricsFPS() float64 {
	if metricsState == nil {
		return 0
	}
	return metricsState.FPS
}

func MetricsFrameTime() float64 {
	if metricsState == nil {
		return 0
	}
	return metricsState.MSavg
}

func MetricsFrame() (float64, float64) {
	return MetricsFPS(), MetricsFrameTime()
}
