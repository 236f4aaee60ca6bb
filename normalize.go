package anyagent

import "math"

// DefaultNormalizerEpsilon is the variance damping term
// used by a Normalizer with a zero Epsilon field.
const DefaultNormalizerEpsilon = 1e-8

// A Normalizer maintains streaming mean and variance
// statistics and rescales batches with them.
//
// Statistics accumulate across every Update call for the
// lifetime of the normalizer; there is no decay and no
// reset. Agents fold each new batch into the statistics
// before normalizing that same batch, so a batch's own
// values influence its own normalization.
type Normalizer struct {
	// Epsilon is added to the standard deviation before
	// dividing, to avoid amplifying near-constant data.
	//
	// If 0, DefaultNormalizerEpsilon is used.
	Epsilon float64

	count float64
	mean  float64
	sqDev float64
}

// Count returns the number of values accumulated so far.
func (n *Normalizer) Count() float64 {
	return n.count
}

// Mean returns the running mean.
func (n *Normalizer) Mean() float64 {
	return n.mean
}

// Variance returns the running population variance.
func (n *Normalizer) Variance() float64 {
	if n.count == 0 {
		return 0
	}
	return n.sqDev / n.count
}

// Update folds a batch into the running statistics.
func (n *Normalizer) Update(batch []float64) {
	if len(batch) == 0 {
		return
	}
	var batchMean float64
	for _, x := range batch {
		batchMean += x
	}
	batchMean /= float64(len(batch))
	var batchSqDev float64
	for _, x := range batch {
		batchSqDev += (x - batchMean) * (x - batchMean)
	}

	batchCount := float64(len(batch))
	total := n.count + batchCount
	delta := batchMean - n.mean
	n.mean += delta * batchCount / total
	n.sqDev += batchSqDev + delta*delta*n.count*batchCount/total
	n.count = total
}

// Normalize rescales a batch with the current statistics,
// returning a new slice.
func (n *Normalizer) Normalize(batch []float64) []float64 {
	eps := n.Epsilon
	if eps == 0 {
		eps = DefaultNormalizerEpsilon
	}
	scale := 1 / (math.Sqrt(n.Variance()) + eps)
	res := make([]float64, len(batch))
	for i, x := range batch {
		res[i] = (x - n.mean) * scale
	}
	return res
}
