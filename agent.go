package anyagent

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/lazyseq"
)

// An Agent samples actions during rollouts and learns
// from the resulting trajectories.
//
// Agents own their network parameters, optimizer state,
// and any normalizer or penalty state. All of it is
// mutated only inside Update, and an agent must not be
// used from concurrent rollouts or updates.
type Agent interface {
	// Start produces the recurrent state for a rollout
	// over n lanes.
	Start(n int) anyrnn.State

	// Step samples a packed batch of actions for a packed
	// batch of observations, advancing the recurrent
	// state.
	Step(state anyrnn.State, obs anyvec.Vector) (anyrnn.State, anyvec.Vector)

	// Update learns from a trajectory and returns the
	// scalar loss.
	Update(t *Trajectory) (float64, error)
}

// blockSeq replays a policy block over an observation
// tape, producing a differentiable output sequence.
//
// Replays always begin at the block's start state, which
// is the state every rollout begins from.
func blockSeq(c anyvec.Creator, b anyrnn.Block, obs lazyseq.Tape) lazyseq.Rereader {
	ins := lazyseq.TapeRereader(obs)
	return lazyseq.Lazify(anyrnn.Map(lazyseq.Unlazify(ins), b))
}

// blockOutputs runs a policy block over observations
// without keeping any gradient information, returning the
// raw output for every timestep.
func blockOutputs(b anyrnn.Block, obs []anyvec.Vector, n int) []anyvec.Vector {
	state := b.Start(n)
	res := make([]anyvec.Vector, len(obs))
	for i, o := range obs {
		out := b.Step(state, o)
		res[i] = out.Output()
		state = out.State()
	}
	return res
}

// valueColumns extracts the trailing value output of each
// lane from packed actor-critic outputs, producing
// time-major rows.
func valueColumns(outs []anyvec.Vector, lanes int) [][]float64 {
	res := make([][]float64, len(outs))
	for t, out := range outs {
		comps := vecToFloats(out)
		outSize := len(comps) / lanes
		row := make([]float64, lanes)
		for lane := range row {
			row[lane] = comps[(lane+1)*outSize-1]
		}
		res[t] = row
	}
	return res
}

// stripValues removes the trailing value component of
// each lane from a packed actor-critic output, leaving
// only action parameters.
func stripValues(out anyvec.Vector, lanes int) anyvec.Vector {
	c := out.Creator()
	comps := vecToFloats(out)
	outSize := len(comps) / lanes
	res := make([]float64, 0, lanes*(outSize-1))
	for lane := 0; lane < lanes; lane++ {
		res = append(res, comps[lane*outSize:(lane+1)*outSize-1]...)
	}
	return c.MakeVectorData(c.MakeNumericList(res))
}

// splitActorCritic splits a packed actor-critic output
// into action parameters and values, keeping both
// differentiable.
//
// Callers should pool the input before splitting it.
func splitActorCritic(out anydiff.Res, n int) (params, values anydiff.Res) {
	outSize := out.Output().Len() / n
	paramParts := make([]anydiff.Res, n)
	valueParts := make([]anydiff.Res, n)
	for i := 0; i < n; i++ {
		paramParts[i] = anydiff.Slice(out, i*outSize, (i+1)*outSize-1)
		valueParts[i] = anydiff.Slice(out, (i+1)*outSize-1, (i+1)*outSize)
	}
	return anydiff.Concat(paramParts...), anydiff.Concat(valueParts...)
}

// applyGradient descends the loss gradient, optionally
// passing it through an anysgd transformer first.
func applyGradient(c anyvec.Creator, grad anydiff.Grad, tr anysgd.Transformer,
	stepSize float64) {
	if len(grad) == 0 {
		return
	}
	if tr != nil {
		grad = tr.Transform(grad)
	}
	grad.Scale(c.MakeNumeric(-stepSize))
	grad.AddToVars()
}

// lossValue extracts the scalar value of a loss result.
func lossValue(loss anydiff.Res) float64 {
	return numToFloat(anyvec.Sum(loss.Output()))
}
