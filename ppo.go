package anyagent

import (
	"errors"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/lazyseq"
)

const (
	// DefaultPPOEpsilon is the clipping radius used by a
	// PPO with a zero Epsilon field.
	DefaultPPOEpsilon = 0.2

	// DefaultPPOEpochs is the epoch count used by a PPO
	// with a zero Epochs field.
	DefaultPPOEpochs = 10

	minAdaptiveBeta = 1e-6
)

// A KLPenalty penalizes divergence from the action
// distributions that produced a trajectory.
//
// The penalty has two parts: a squared hinge that kicks
// in once the mean KL exceeds CutoffFactor times Target,
// and (for adaptive penalties) a linear term weighted by
// Beta, where Beta is re-tuned after every update.
type KLPenalty struct {
	// Target is the desired mean KL per update.
	Target float64

	// CutoffFactor scales Target into the hinge
	// threshold.
	//
	// If 0, a default of 2 is used.
	CutoffFactor float64

	// CutoffCoeff is the weight of the squared hinge.
	//
	// If 0, a default of 1000 is used.
	CutoffCoeff float64

	// Tolerance is the factor of slack around Target
	// within which Beta is left unchanged.
	//
	// If 0, a default of 1.5 is used.
	Tolerance float64

	// Beta is the current adaptive coefficient.
	Beta float64

	// BetaScale is the factor Beta grows or shrinks by.
	// A zero BetaScale disables adaptation, leaving only
	// the hinge term.
	BetaScale float64
}

// NewAdaptiveKLPenalty creates a penalty whose Beta is
// re-tuned after every update.
//
// It fails if scale is not strictly positive.
func NewAdaptiveKLPenalty(target, beta, scale float64) (*KLPenalty, error) {
	if scale <= 0 {
		return nil, errors.New("adaptive KL penalty: scale must be positive")
	}
	return &KLPenalty{Target: target, Beta: beta, BetaScale: scale}, nil
}

func (k *KLPenalty) adaptive() bool {
	return k.BetaScale != 0
}

// adjust re-tunes Beta from the realized mean KL.
func (k *KLPenalty) adjust(klMean float64) {
	tolerance := k.Tolerance
	if tolerance == 0 {
		tolerance = 1.5
	}
	if klMean < k.Target/tolerance {
		k.Beta = math.Max(k.Beta/k.BetaScale, minAdaptiveBeta)
	} else if klMean > k.Target*tolerance {
		k.Beta *= k.BetaScale
	}
}

// penalty builds the differentiable penalty term from the
// mean KL.
func (k *KLPenalty) penalty(c anyvec.Creator, klMean anydiff.Res) anydiff.Res {
	cutoffFactor := k.CutoffFactor
	if cutoffFactor == 0 {
		cutoffFactor = 2
	}
	cutoffCoeff := k.CutoffCoeff
	if cutoffCoeff == 0 {
		cutoffCoeff = 1000
	}
	return anydiff.Pool(klMean, func(klMean anydiff.Res) anydiff.Res {
		threshold := []float64{cutoffFactor * k.Target}
		hinge := anydiff.ClipPos(anydiff.Sub(klMean,
			anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(threshold)))))
		res := anydiff.Scale(anydiff.Square(hinge), c.MakeNumeric(cutoffCoeff))
		if k.adaptive() {
			res = anydiff.Add(res, anydiff.Scale(klMean, c.MakeNumeric(k.Beta)))
		}
		return res
	})
}

// PPO implements Proximal Policy Optimization.
//
// See https://arxiv.org/abs/1707.06347.
type PPO struct {
	// Block maps observations to action parameters
	// followed by one value estimate per lane.
	Block anyrnn.Block

	// ActionSpace interprets the action parameters.
	// It must also implement KLer if KL is set.
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

	// Epsilon is the amount by which the probability
	// ratio may change before clipping.
	//
	// If 0, DefaultPPOEpsilon is used.
	Epsilon float64

	// Unclipped disables ratio clipping, leaving the
	// plain surrogate objective.
	Unclipped bool

	// Epochs is the number of optimization passes per
	// update. Every epoch replays the policy over the
	// same trajectory from its initial state.
	//
	// If 0, DefaultPPOEpochs is used.
	Epochs int

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

	// TDLambdaReturn selects advantage+value as the
	// critic's target instead of the discounted return.
	// It only takes effect with a GAE Advantager; any
	// other Advantager falls back to the discounted
	// return.
	TDLambdaReturn bool

	// KL, if non-nil, adds a KL divergence penalty to
	// the loss.
	KL *KLPenalty
}

// Start produces the rollout state.
func (p *PPO) Start(n int) anyrnn.State {
	return p.Block.Start(n)
}

// Step samples actions for a packed observation batch,
// discarding the value outputs.
func (p *PPO) Step(state anyrnn.State, obs anyvec.Vector) (anyrnn.State,
	anyvec.Vector) {
	res := p.Block.Step(state, obs)
	n := state.Present().NumPresent()
	params := stripValues(res.Output(), n)
	return res.State(), p.ActionSpace.Sample(params, n)
}

// Update performs Epochs gradient steps on the trajectory
// and returns the final epoch's loss.
//
// The block's outputs at the start of the update are
// frozen as the importance-sampling baseline; every epoch
// re-evaluates the block from the trajectory's initial
// state against that baseline.
func (p *PPO) Update(t *Trajectory) (float64, error) {
	c := t.Creator()
	numSteps := t.NumSteps()
	lanes := t.NumLanes()

	var kler KLer
	if p.KL != nil {
		var ok bool
		kler, ok = p.ActionSpace.(KLer)
		if !ok {
			panic("anyagent: KL penalty requires a KLer action space")
		}
	}

	oldOuts := blockOutputs(p.Block, t.Observations, lanes)
	values := valueColumns(oldOuts, lanes)
	est := p.Advantager.Estimate(t.Kinds, t.Rewards, values[:numSteps],
		values[numSteps])

	advantages := est.Advantages
	if p.Normalizer != nil {
		flat := flattenRows(advantages)
		p.Normalizer.Update(flat)
		advantages = unflattenRows(p.Normalizer.Normalize(flat), lanes)
	}

	targets := p.criticTargets(est, values)

	oldParams := make([]anyvec.Vector, len(oldOuts))
	for i, out := range oldOuts {
		oldParams[i] = stripValues(out, lanes)
	}

	// Tapes are padded to T+1 timesteps with zeros so
	// that they line up with the observation window; the
	// mask removes the extra step from every loss term.
	padded := numSteps + 1
	obsTape := t.ObservationTape(padded)
	oldTape := vecTape(oldParams, lanes)
	actTape := t.ActionTape(padded)
	advTape := rowTape(c, advantages, padded)
	targetTape := rowTape(c, targets, padded)
	maskTape := rowTape(c, constRows(numSteps, lanes, 1), padded)

	epochs := p.Epochs
	if epochs == 0 {
		epochs = DefaultPPOEpochs
	}
	var lastLoss float64
	for epoch := 0; epoch < epochs; epoch++ {
		outSeq := blockSeq(c, p.Block, obsTape)
		obj := lazyseq.MapN(func(n int, v ...anydiff.Res) anydiff.Res {
			out, old, act, adv, target, msk := v[0], v[1], v[2], v[3], v[4], v[5]
			return anydiff.Pool(out, func(out anydiff.Res) anydiff.Res {
				params, vals := splitActorCritic(out, n)
				return anydiff.Pool(params, func(params anydiff.Res) anydiff.Res {
					newProbs := p.ActionSpace.LogProb(params, act.Output(), n)
					oldProbs := p.ActionSpace.LogProb(old, act.Output(), n)
					ratios := anydiff.Exp(anydiff.Sub(newProbs, oldProbs))

					policy := p.policyTerm(c, ratios, adv)
					critic := anydiff.Mul(anydiff.Square(anydiff.Sub(vals, target)), msk)
					var entropy anydiff.Res = anydiff.NewConst(c.MakeVector(n))
					if p.EntropyReg != 0 {
						entropy = anydiff.Mul(p.ActionSpace.Entropy(params, n), msk)
					}
					var kl anydiff.Res = anydiff.NewConst(c.MakeVector(n))
					if kler != nil {
						kl = anydiff.Mul(kler.KL(old, params, n), msk)
					}

					cm := anynet.ConcatMixer{}
					mixed := cm.Mix(policy, critic, n)
					mixed = cm.Mix(mixed, entropy, n)
					return cm.Mix(mixed, kl, n)
				})
			})
		}, outSeq, lazyseq.TapeRereader(oldTape),
			lazyseq.TapeRereader(actTape), lazyseq.TapeRereader(advTape),
			lazyseq.TapeRereader(targetTape), lazyseq.TapeRereader(maskTape))

		loss := p.assembleLoss(c, lazyseq.Mean(obj), numSteps)
		grad := anydiff.NewGrad(p.Params...)
		loss.Propagate(anyvec.Ones(c, 1), grad)
		applyGradient(c, grad, p.Transformer, p.StepSize)
		lastLoss = lossValue(loss)
	}

	if p.KL != nil && p.KL.adaptive() {
		newOuts := blockOutputs(p.Block, t.Observations[:numSteps], lanes)
		var total float64
		for i, out := range newOuts {
			klRes := kler.KL(anydiff.NewConst(oldParams[i]),
				anydiff.NewConst(stripValues(out, lanes)), lanes)
			total += numToFloat(anyvec.Sum(klRes.Output()))
		}
		p.KL.adjust(total / float64(numSteps*lanes))
	}

	return lastLoss, nil
}

// criticTargets selects the value regression target.
func (p *PPO) criticTargets(est *AdvantageEstimate, values [][]float64) [][]float64 {
	if p.TDLambdaReturn {
		if _, ok := p.Advantager.(*GAE); ok {
			res := make([][]float64, len(est.Advantages))
			for t, row := range est.Advantages {
				targetRow := make([]float64, len(row))
				for lane, adv := range row {
					targetRow[lane] = adv + values[t][lane]
				}
				res[t] = targetRow
			}
			return res
		}
	}
	return est.DiscountedReturns()
}

// policyTerm computes the per-sample surrogate objective.
func (p *PPO) policyTerm(c anyvec.Creator, ratios, advantages anydiff.Res) anydiff.Res {
	if p.Unclipped {
		return anydiff.Mul(ratios, advantages)
	}
	epsilon := p.Epsilon
	if epsilon == 0 {
		epsilon = DefaultPPOEpsilon
	}
	return anydiff.Pool(ratios, func(ratios anydiff.Res) anydiff.Res {
		clipped := anydiff.ClipRange(ratios, c.MakeNumeric(1-epsilon),
			c.MakeNumeric(1+epsilon))
		return anydiff.ElemMin(
			anydiff.Mul(clipped, advantages),
			anydiff.Mul(ratios, advantages),
		)
	})
}

// assembleLoss combines the per-term means into the
// scalar loss.
func (p *PPO) assembleLoss(c anyvec.Creator, mean anydiff.Res, numSteps int) anydiff.Res {
	return anydiff.Pool(mean, func(mean anydiff.Res) anydiff.Res {
		// The per-term means cover the padded window;
		// rescale them to means over the T real steps.
		scale := float64(numSteps+1) / float64(numSteps)
		valueWeight := p.ValueWeight
		if valueWeight == 0 {
			valueWeight = 1
		}
		loss := anydiff.Scale(anydiff.Slice(mean, 0, 1), c.MakeNumeric(-scale))
		loss = anydiff.Add(loss, anydiff.Scale(anydiff.Slice(mean, 1, 2),
			c.MakeNumeric(scale*valueWeight)))
		if p.EntropyReg != 0 {
			loss = anydiff.Add(loss, anydiff.Scale(anydiff.Slice(mean, 2, 3),
				c.MakeNumeric(-scale*p.EntropyReg)))
		}
		if p.KL != nil {
			klMean := anydiff.Scale(anydiff.Slice(mean, 3, 4), c.MakeNumeric(scale))
			loss = anydiff.Add(loss, p.KL.penalty(c, klMean))
		}
		return loss
	})
}
