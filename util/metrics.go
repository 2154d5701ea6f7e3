package util

// MetricsBucketsSeconds are histogram buckets for durations from 1s up to
// about 34 minutes, doubling per bucket.
var MetricsBucketsSeconds = []float64{
	1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024, 2048,
}
