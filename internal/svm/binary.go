package svm

import (
	"context"
	"math"
	"math/rand/v2"
)

// binaryResult is one trained two-class model.
type binaryResult struct {
	weights    []float64
	bias       float64
	iterations int
	converged  bool
}

// trainBinary solves
//
//	min_w 1/2 |w|^2 + C * sum_i max(0, 1 - y_i (w.x_i + b))
//
// in the dual, one coordinate at a time. The bias is handled as an extra
// constant feature of value 1, so it is regularized together with w.
// y must hold +1 or -1.
func trainBinary(ctx context.Context, X [][]float64, y []float64, p Params, rng *rand.Rand) (binaryResult, error) {
	n := len(X)
	dim := len(X[0])

	w := make([]float64, dim)
	var b float64
	alpha := make([]float64, n)

	qd := make([]float64, n)
	for i, x := range X {
		qd[i] = dot(x, x) + 1
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	res := binaryResult{}
	for iter := 0; iter < p.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })

		maxPG := math.Inf(-1)
		minPG := math.Inf(1)

		for _, i := range order {
			xi := X[i]
			yi := y[i]

			g := yi*(dot(w, xi)+b) - 1

			var pg float64
			switch {
			case alpha[i] == 0:
				pg = math.Min(g, 0)
			case alpha[i] == p.C:
				pg = math.Max(g, 0)
			default:
				pg = g
			}
			maxPG = math.Max(maxPG, pg)
			minPG = math.Min(minPG, pg)

			if math.Abs(pg) <= 1e-12 {
				continue
			}

			old := alpha[i]
			alpha[i] = math.Min(math.Max(old-g/qd[i], 0), p.C)
			d := (alpha[i] - old) * yi
			if d == 0 {
				continue
			}
			for j, v := range xi {
				w[j] += d * v
			}
			b += d
		}

		res.iterations = iter + 1
		if maxPG-minPG <= p.Tol {
			res.converged = true
			break
		}
	}

	res.weights = w
	res.bias = b
	return res, nil
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
