package anyagent

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
)

// identityBlock passes observations straight through,
// letting tests choose the exact network outputs by
// choosing observations.
func identityBlock(c anyvec.Creator) anyrnn.Block {
	return &anyrnn.FuncBlock{
		Func: func(in, state anydiff.Res, batch int) (out, newState anydiff.Res) {
			return in, state
		},
		MakeStart: func(n int) anydiff.Res {
			return anydiff.NewConst(c.MakeVector(0))
		},
	}
}

// testEnv runs episodes of a fixed length with a fixed
// observation, rewarding 1 per step.
type testEnv struct {
	creator    anyvec.Creator
	obs        []float64
	episodeLen int

	timestep int
	done     bool
}

func (e *testEnv) Reset() (*Step, error) {
	e.timestep = 0
	e.done = false
	return &Step{Kind: First, Observation: e.obsVec()}, nil
}

func (e *testEnv) Step(action anyvec.Vector) (*Step, error) {
	if e.done {
		e.timestep = 0
		e.done = false
		return &Step{Kind: First, Observation: e.obsVec()}, nil
	}
	e.timestep++
	kind := Transition
	if e.timestep == e.episodeLen {
		kind = Last
		e.done = true
	}
	return &Step{Kind: kind, Observation: e.obsVec(), Reward: 1}, nil
}

func (e *testEnv) obsVec() anyvec.Vector {
	return e.creator.MakeVectorData(e.creator.MakeNumericList(e.obs))
}

// logSoftmax computes a reference log-softmax on native
// floats.
func logSoftmax(logits []float64) []float64 {
	var max float64 = math.Inf(-1)
	for _, x := range logits {
		max = math.Max(max, x)
	}
	var sum float64
	for _, x := range logits {
		sum += math.Exp(x - max)
	}
	logSum := max + math.Log(sum)
	res := make([]float64, len(logits))
	for i, x := range logits {
		res[i] = x - logSum
	}
	return res
}

// actionLogProb computes the reference log-likelihood of
// a one-hot action under logits.
func actionLogProb(logits, oneHot []float64) float64 {
	var res float64
	for i, l := range logSoftmax(logits) {
		res += l * oneHot[i]
	}
	return res
}
