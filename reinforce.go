package anyagent

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/lazyseq"
)

// Reinforce implements the REINFORCE policy gradient
// algorithm: the log-likelihood of every action in a
// completed episode is weighted by that episode's
// discounted return.
//
// See https://doi.org/10.1007/BF00992696.
type Reinforce struct {
	// Block maps observations to action parameters.
	Block anyrnn.Block

	// ActionSpace interprets the block's outputs.
	ActionSpace ActionSpace

	// Params specifies which parameters to update.
	Params []*anydiff.Var

	// Transformer, if non-nil, pre-processes gradients
	// (e.g. anysgd.Adam).
	Transformer anysgd.Transformer

	// StepSize is the gradient descent step size.
	StepSize float64

	// Discount is the reward discount factor.
	Discount float64

	// EntropyReg, if non-zero, is the weight of an
	// entropy bonus that encourages exploration.
	EntropyReg float64

	// Normalizer, if non-nil, rescales the discounted
	// returns with running statistics.
	Normalizer *Normalizer
}

// Start produces the rollout state.
func (r *Reinforce) Start(n int) anyrnn.State {
	return r.Block.Start(n)
}

// Step samples actions for a packed observation batch.
func (r *Reinforce) Step(state anyrnn.State, obs anyvec.Vector) (anyrnn.State,
	anyvec.Vector) {
	res := r.Block.Step(state, obs)
	n := state.Present().NumPresent()
	return res.State(), r.ActionSpace.Sample(res.Output(), n)
}

// Update performs one gradient step on the trajectory and
// returns the loss.
//
// The trajectory must contain at least one completed
// episode. This is a hard precondition: violating it
// indicates a broken rollout setup, so Update panics
// rather than reporting an error.
func (r *Reinforce) Update(t *Trajectory) (float64, error) {
	c := t.Creator()
	numSteps := t.NumSteps()
	lanes := t.NumLanes()

	returns := DiscountedReturns(t.Kinds, t.Rewards, r.Discount, nil)
	if r.Normalizer != nil {
		flat := flattenRows(returns)
		r.Normalizer.Update(flat)
		returns = unflattenRows(r.Normalizer.Normalize(flat), lanes)
	}

	mask, episodes := completedEpisodes(t.Kinds)
	if episodes == 0 {
		panic("anyagent: reinforce requires a completed episode")
	}
	weights := make([][]float64, numSteps)
	for i, row := range returns {
		weightRow := make([]float64, lanes)
		for lane, ret := range row {
			weightRow[lane] = ret * mask[i][lane]
		}
		weights[i] = weightRow
	}

	outs := blockSeq(c, r.Block, t.ObservationTape(numSteps))
	acts := lazyseq.TapeRereader(t.ActionTape(numSteps))
	wts := lazyseq.TapeRereader(rowTape(c, weights, numSteps))

	obj := lazyseq.MapN(func(n int, v ...anydiff.Res) anydiff.Res {
		out, act, weight := v[0], v[1], v[2]
		term := anydiff.Mul(r.ActionSpace.LogProb(out, act.Output(), n), weight)
		if r.EntropyReg == 0 {
			return term
		}
		cm := anynet.ConcatMixer{}
		return cm.Mix(term, r.ActionSpace.Entropy(out, n), n)
	}, outs, acts, wts)

	// The mean is over every timestep and lane; rescale
	// the policy term so that it is a per-episode sum.
	coeffs := []float64{-float64(numSteps*lanes) / float64(episodes)}
	if r.EntropyReg != 0 {
		coeffs = append(coeffs, -r.EntropyReg)
	}
	coeffRes := anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(coeffs)))
	loss := anydiff.Sum(anydiff.Mul(lazyseq.Mean(obj), coeffRes))

	grad := anydiff.NewGrad(r.Params...)
	loss.Propagate(anyvec.Ones(c, 1), grad)
	applyGradient(c, grad, r.Transformer, r.StepSize)

	return lossValue(loss), nil
}

// completedEpisodes masks the steps belonging to episodes
// that complete within the window and counts those
// episodes.
func completedEpisodes(kinds [][]StepKind) ([][]float64, int) {
	numSteps := len(kinds)
	lanes := len(kinds[0])
	mask := constRows(numSteps, lanes, 0)
	var episodes int
	for lane := 0; lane < lanes; lane++ {
		lastEnd := -1
		for t, row := range kinds {
			if row[lane] == Last {
				lastEnd = t
				episodes++
			}
		}
		for t := 0; t <= lastEnd; t++ {
			mask[t][lane] = 1
		}
	}
	return mask, episodes
}
