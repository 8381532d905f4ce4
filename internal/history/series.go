package history

import "github.com/nvgputop/nvgputop-web/internal/monitor"

// Point is one chart point. X is "seconds ago" relative to the newest
// sample in the snapshot (0 = now), Y the metric value.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// UtilizationSeries maps a snapshot to GPU-utilization chart points.
func UtilizationSeries(samples []monitor.Sample) []Point {
	return series(samples, func(s monitor.Sample) (float64, bool) {
		return s.Utilization, true
	})
}

// MemoryPercentSeries maps a snapshot to memory-usage percentages.
// Samples reporting a zero total are excluded rather than producing NaN.
func MemoryPercentSeries(samples []monitor.Sample) []Point {
	return series(samples, func(s monitor.Sample) (float64, bool) {
		if s.MemoryTotal == 0 {
			return 0, false
		}
		return float64(s.MemoryUsed) / float64(s.MemoryTotal) * 100, true
	})
}

// TemperatureSeries maps a snapshot to temperature chart points.
func TemperatureSeries(samples []monitor.Sample) []Point {
	return series(samples, func(s monitor.Sample) (float64, bool) {
		return s.Temperature, true
	})
}

// PowerPercentSeries maps a snapshot to power-draw percentages of the
// power cap. Samples without a usable cap are excluded from this series
// only; they remain part of every other series.
func PowerPercentSeries(samples []monitor.Sample) []Point {
	return series(samples, func(s monitor.Sample) (float64, bool) {
		if s.PowerLimit <= 0 {
			return 0, false
		}
		return s.PowerUsage / s.PowerLimit * 100, true
	})
}

func series(samples []monitor.Sample, value func(monitor.Sample) (float64, bool)) []Point {
	if len(samples) == 0 {
		return nil
	}
	newest := samples[len(samples)-1].Timestamp

	points := make([]Point, 0, len(samples))
	for _, sample := range samples {
		y, ok := value(sample)
		if !ok {
			continue
		}
		x := newest - sample.Timestamp
		if x < 0 {
			x = 0
		}
		points = append(points, Point{X: x, Y: y})
	}
	return points
}
