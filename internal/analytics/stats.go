// Package analytics holds the pure metric calculators: health score
// components, category performance, spending concentration, trend
// regression and goal projection. Nothing here touches the store.
package analytics

import "math"

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// populationStdDev divides by n, not n-1.
func populationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var varianceSum float64
	for _, v := range values {
		diff := v - m
		varianceSum += diff * diff
	}
	return math.Sqrt(varianceSum / float64(len(values)))
}

// coefficientOfVariation is stddev/mean*100, or 0 below two points or at zero mean.
func coefficientOfVariation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	if m == 0 {
		return 0
	}
	return populationStdDev(values) / m * 100
}

// computeLinearRegression computes slope and R-squared for a series of y-values
// where x = 0, 1, 2, ... (the index).
func computeLinearRegression(points []float64) (slope, rSquared float64) {
	n := float64(len(points))
	if n < 2 {
		return 0, 0
	}
	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range points {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, 0
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssRes, ssTot float64
	for i, y := range points {
		predicted := slope*float64(i) + intercept
		ssRes += (y - predicted) * (y - predicted)
		ssTot += (y - meanY) * (y - meanY)
	}
	if ssTot == 0 {
		return slope, 1
	}
	return slope, 1 - ssRes/ssTot
}

// percentOf returns part/whole*100, or fallback when whole is zero.
func percentOf(part, whole, fallback float64) float64 {
	if whole == 0 {
		return fallback
	}
	return part / whole * 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// round2 is applied to display figures only, never to score components.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
