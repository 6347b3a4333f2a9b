package dla

import (
	"errors"
	"math"
	"math/bits"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// BoxCounts holds the number of occupied boxes per tree depth. Depth d
// corresponds to boxes of side domain/2^d; the last entry is the
// sub-quadrant scale below the box-count leaves.
type BoxCounts []int64

// Scale returns the box side at depth d relative to the domain side.
func Scale(d int) float64 { return math.Ldexp(1, -d) }

// Map converts the counts into scale -> count, skipping empty scales.
func (b BoxCounts) Map() map[float64]int {
	out := make(map[float64]int, len(b))
	for d, n := range b {
		if n > 0 {
			out[Scale(d)] = int(n)
		}
	}
	return out
}

// Estimator counts occupied boxes in a tree. The full-cell table is built
// once: row d lists 4^k for every depth d+k down to the finest scale.
type Estimator struct {
	finest int
	table  [][]int64
}

// NewEstimator builds the full-cell table for trees whose box leaves sit at boxDepth.
func NewEstimator(boxDepth int) *Estimator {
	finest := boxDepth + 1
	e := &Estimator{finest: finest, table: make([][]int64, finest+1)}
	for d := 0; d <= finest; d++ {
		row := make([]int64, finest-d+1)
		n := int64(1)
		for k := range row {
			row[k] = n
			n *= 4
		}
		e.table[d] = row
	}
	return e
}

// Estimate walks t once. Full cells contribute their table row without being
// visited further; other cells add one box at their own depth.
func (e *Estimator) Estimate(t *Tree) BoxCounts {
	counts := make(BoxCounts, e.finest+1)
	if t.Empty() {
		return counts
	}
	var visit func(ci int32)
	visit = func(ci int32) {
		c := &t.cells[ci]
		d := int(c.depth)
		if c.full {
			for k, n := range e.table[d] {
				counts[d+k] += n
			}
			return
		}
		counts[d]++
		if c.kind == kindBoxLeaf {
			counts[e.finest] += int64(bits.OnesCount8(c.mask))
			return
		}
		for _, ch := range c.children {
			if ch != absent {
				visit(ch)
			}
		}
	}
	visit(0)
	return counts
}

// Dimensions converts every scale below 1 into log(count)/log(1/scale).
func Dimensions(counts map[float64]int) map[float64]float64 {
	out := make(map[float64]float64, len(counts))
	for scale, n := range counts {
		if scale >= 1 || scale <= 0 || n <= 0 {
			continue
		}
		out[scale] = math.Log(float64(n)) / math.Log(1/scale)
	}
	return out
}

// ErrTooFewScales is returned by FitDimension when fewer than two usable scales exist.
var ErrTooFewScales = errors.New("dla: need at least two scales below 1 to fit a dimension")

// FitDimension returns the least-squares slope of log(count) against
// log(1/scale) over every scale below 1.
func FitDimension(counts map[float64]int) (float64, error) {
	scales := make([]float64, 0, len(counts))
	for scale, n := range counts {
		if scale < 1 && scale > 0 && n > 0 {
			scales = append(scales, scale)
		}
	}
	if len(scales) < 2 {
		return 0, ErrTooFewScales
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scales)))
	xs := make([]float64, len(scales))
	ys := make([]float64, len(scales))
	for i, s := range scales {
		xs[i] = math.Log(1 / s)
		ys[i] = math.Log(float64(counts[s]))
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	return slope, nil
}
