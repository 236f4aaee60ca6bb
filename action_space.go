package anyagent

import (
	"math"
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// A Sampler samples actions from a batch of action
// parameter vectors.
type Sampler interface {
	Sample(params anyvec.Vector, batchSize int) anyvec.Vector
}

// A LogProber computes the log-likelihood of sampled
// actions under a batch of action parameter vectors.
type LogProber interface {
	LogProb(params anydiff.Res, output anyvec.Vector, batchSize int) anydiff.Res
}

// An Entropyer computes the entropy of the action
// distributions in a batch of parameter vectors.
type Entropyer interface {
	Entropy(params anydiff.Res, batchSize int) anydiff.Res
}

// A KLer computes the KL divergence between corresponding
// distributions in two batches of parameter vectors.
type KLer interface {
	KL(params1, params2 anydiff.Res, batchSize int) anydiff.Res
}

// An ActionSpace bundles the distribution operations an
// agent needs during rollouts and updates.
type ActionSpace interface {
	Sampler
	LogProber
	Entropyer
}

// Softmax is a categorical action space parameterized by
// logits. Sampled actions are one-hot vectors.
type Softmax struct{}

// Sample samples a one-hot vector per batch row.
func (s Softmax) Sample(params anyvec.Vector, batchSize int) anyvec.Vector {
	c := params.Creator()
	chunk := params.Len() / batchSize
	logs := params.Copy()
	anyvec.LogSoftmax(logs, chunk)
	probs := vecToFloats(logs)
	res := make([]float64, len(probs))
	for i := 0; i < batchSize; i++ {
		row := probs[i*chunk : (i+1)*chunk]
		p := rand.Float64()
		idx := len(row) - 1
		for j, logProb := range row {
			p -= math.Exp(logProb)
			if p < 0 {
				idx = j
				break
			}
		}
		res[i*chunk+idx] = 1
	}
	return c.MakeVectorData(c.MakeNumericList(res))
}

// LogProb computes the log-likelihood of each one-hot
// action.
func (s Softmax) LogProb(params anydiff.Res, output anyvec.Vector,
	batchSize int) anydiff.Res {
	chunk := output.Len() / batchSize
	logs := anydiff.LogSoftmax(params, chunk)
	masked := anydiff.Mul(logs, anydiff.NewConst(output))
	return anydiff.SumCols(&anydiff.Matrix{
		Data: masked,
		Rows: batchSize,
		Cols: chunk,
	})
}

// Entropy computes the entropy of each row's categorical
// distribution.
func (s Softmax) Entropy(params anydiff.Res, batchSize int) anydiff.Res {
	chunk := params.Output().Len() / batchSize
	logs := anydiff.LogSoftmax(params, chunk)
	return anydiff.Pool(logs, func(logs anydiff.Res) anydiff.Res {
		neg := anydiff.SumCols(&anydiff.Matrix{
			Data: anydiff.Mul(anydiff.Exp(logs), logs),
			Rows: batchSize,
			Cols: chunk,
		})
		c := neg.Output().Creator()
		return anydiff.Scale(neg, c.MakeNumeric(-1.0))
	})
}

// KL computes KL(P||Q) per row, where P and Q are the
// distributions under params1 and params2 respectively.
func (s Softmax) KL(params1, params2 anydiff.Res, batchSize int) anydiff.Res {
	chunk := params1.Output().Len() / batchSize
	logs1 := anydiff.LogSoftmax(params1, chunk)
	logs2 := anydiff.LogSoftmax(params2, chunk)
	return anydiff.Pool(logs1, func(logs1 anydiff.Res) anydiff.Res {
		return anydiff.SumCols(&anydiff.Matrix{
			Data: anydiff.Mul(anydiff.Exp(logs1), anydiff.Sub(logs1, logs2)),
			Rows: batchSize,
			Cols: chunk,
		})
	})
}
