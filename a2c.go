package anyagent

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/lazyseq"
)

// A2C implements advantage actor-critic, the synchronous
// variant of A3C.
//
// See https://arxiv.org/abs/1602.01783.
type A2C struct {
	// Block maps observations to action parameters
	// followed by one value estimate per lane.
	Block anyrnn.Block

	// ActionSpace interprets the action parameters.
	ActionSpace ActionSpace

	// Params specifies which parameters to update.
	Params []*anydiff.Var

	// Transformer, if non-nil, pre-processes gradients
	// (e.g. anysgd.Adam).
	Transformer anysgd.Transformer

	// StepSize is the gradient descent step size.
	StepSize float64

	// Advantager estimates action advantages.
	Advantager Advantager

	// ValueWeight is the weight of the critic's loss.
	//
	// If 0, a default of 1 is used.
	ValueWeight float64

	// EntropyReg, if non-zero, is the weight of an
	// entropy bonus that encourages exploration.
	EntropyReg float64

	// Normalizer, if non-nil, rescales the advantages
	// with running statistics.
	Normalizer *Normalizer
}

// Start produces the rollout state.
func (a *A2C) Start(n int) anyrnn.State {
	return a.Block.Start(n)
}

// Step samples actions for a packed observation batch,
// discarding the value outputs.
func (a *A2C) Step(state anyrnn.State, obs anyvec.Vector) (anyrnn.State,
	anyvec.Vector) {
	res := a.Block.Step(state, obs)
	n := state.Present().NumPresent()
	params := stripValues(res.Output(), n)
	return res.State(), a.ActionSpace.Sample(params, n)
}

// Update performs one gradient step on the trajectory and
// returns the loss.
//
// The block is evaluated over the trajectory's T+1
// observations; the final evaluation contributes only its
// value output, which bootstraps the advantage estimate.
func (a *A2C) Update(t *Trajectory) (float64, error) {
	c := t.Creator()
	numSteps := t.NumSteps()
	lanes := t.NumLanes()

	outs := blockOutputs(a.Block, t.Observations, lanes)
	values := valueColumns(outs, lanes)
	est := a.Advantager.Estimate(t.Kinds, t.Rewards, values[:numSteps],
		values[numSteps])

	advantages := est.Advantages
	if a.Normalizer != nil {
		flat := flattenRows(advantages)
		a.Normalizer.Update(flat)
		advantages = unflattenRows(a.Normalizer.Normalize(flat), lanes)
	}

	// Tapes are padded to T+1 timesteps with zeros so
	// that they line up with the observation window; the
	// mask removes the extra step from every loss term.
	padded := numSteps + 1
	outSeq := blockSeq(c, a.Block, t.ObservationTape(padded))
	acts := lazyseq.TapeRereader(t.ActionTape(padded))
	advs := lazyseq.TapeRereader(rowTape(c, advantages, padded))
	targets := lazyseq.TapeRereader(rowTape(c, est.DiscountedReturns(), padded))
	mask := lazyseq.TapeRereader(rowTape(c, constRows(numSteps, lanes, 1), padded))

	obj := lazyseq.MapN(func(n int, v ...anydiff.Res) anydiff.Res {
		out, act, adv, target, msk := v[0], v[1], v[2], v[3], v[4]
		return anydiff.Pool(out, func(out anydiff.Res) anydiff.Res {
			params, vals := splitActorCritic(out, n)
			policy := anydiff.Mul(a.ActionSpace.LogProb(params, act.Output(), n), adv)
			critic := anydiff.Mul(anydiff.Square(anydiff.Sub(vals, target)), msk)
			entropy := anydiff.Mul(a.ActionSpace.Entropy(params, n), msk)
			cm := anynet.ConcatMixer{}
			return cm.Mix(cm.Mix(policy, critic, n), entropy, n)
		})
	}, outSeq, acts, advs, targets, mask)

	valueWeight := a.ValueWeight
	if valueWeight == 0 {
		valueWeight = 1
	}
	scale := float64(padded) / float64(numSteps)
	coeffs := []float64{-scale, scale * valueWeight, -scale * a.EntropyReg}
	coeffRes := anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(coeffs)))
	loss := anydiff.Sum(anydiff.Mul(lazyseq.Mean(obj), coeffRes))

	grad := anydiff.NewGrad(a.Params...)
	loss.Propagate(anyvec.Ones(c, 1), grad)
	applyGradient(c, grad, a.Transformer, a.StepSize)

	return lossValue(loss), nil
}
