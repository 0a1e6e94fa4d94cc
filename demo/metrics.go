package main

import "math"

// metrics calculates forecast accuracy metrics over the observed test
// values.
func metrics(actual, predicted []float64) (rmse, mae, mape float64) {
	n := min(len(actual), len(predicted))
	count := 0
	for i := 0; i < n; i++ {
		if math.IsNaN(actual[i]) {
			continue
		}
		d := actual[i] - predicted[i]
		rmse += d * d
		mae += math.Abs(d)
		if actual[i] != 0 {
			mape += math.Abs(d) / math.Abs(actual[i]) * 100
		}
		count++
	}
	if count == 0 {
		return
	}
	return math.Sqrt(rmse / float64(count)), mae / float64(count), mape / float64(count)
}

// testSize determines appropriate test set size
func testSize(n, period int) int {
	size := n / 5
	if period > 0 {
		size = max(size, period)
	}
	return max(min(size, 30), 3)
}

func makeRange(start, end int) []int {
	r := make([]int, end-start+1)
	for i := range r {
		r[i] = start + i
	}
	return r
}

// nullable turns NaN into nil so it encodes as JSON null.
func nullable(x []float64) []*float64 {
	out := make([]*float64, len(x))
	for i := range x {
		if !math.IsNaN(x[i]) && !math.IsInf(x[i], 0) {
			out[i] = &x[i]
		}
	}
	return out
}
