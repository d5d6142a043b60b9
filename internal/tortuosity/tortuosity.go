// Package tortuosity measures how much a path through embedding space winds
// relative to the distance it covers.
package tortuosity

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"tortuosity/internal/domain"
)

// Epsilon keeps the angle computation finite for zero-length displacements.
const Epsilon = 1e-10

// MinVectors is the shortest path with at least one interior vertex.
const MinVectors = 3

// Compute returns the cumulative turning angle of the path divided by the
// straight-line distance between its endpoints. Paths shorter than MinVectors
// and paths that end where they start score 0.
func Compute(vectors []domain.Vector) float64 {
	if len(vectors) < MinVectors {
		return 0
	}
	total := TurningAngle(vectors)
	dist := floats.Distance(vectors[len(vectors)-1], vectors[0], 2)
	if dist == 0 {
		return 0
	}
	return total / dist
}

// TurningAngle returns the cumulative turning angle in radians.
func TurningAngle(vectors []domain.Vector) float64 {
	if len(vectors) < MinVectors {
		return 0
	}
	dim := len(vectors[0])
	a := make([]float64, dim)
	b := make([]float64, dim)
	total := 0.0
	for i := 1; i < len(vectors)-1; i++ {
		floats.SubTo(a, vectors[i], vectors[i-1])
		floats.SubTo(b, vectors[i+1], vectors[i])
		total += angle(a, b)
	}
	return total
}

func angle(a, b []float64) float64 {
	cos := floats.Dot(a, b) / (floats.Norm(a, 2)*floats.Norm(b, 2) + Epsilon)
	// clip floating point overshoot before arccos
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos)
}
