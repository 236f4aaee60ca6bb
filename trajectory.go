package anyagent

import (
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/lazyseq"
)

// A Trajectory is a batched, time-ordered record of one
// rollout segment.
//
// All per-timestep fields are time-major and share the
// same length T and batch width, except Observations,
// which has length T+1: the final observation is the one
// the rollout stopped on, kept as the input for value
// bootstrapping.
//
// The kind at index [t][lane] describes the step that
// *resulted* from the action at [t][lane], so a Last kind
// marks the entry that ends an episode.
type Trajectory struct {
	Kinds        [][]StepKind
	Observations []anyvec.Vector
	Actions      []anyvec.Vector
	Rewards      [][]float64
}

// NumSteps returns the number of timesteps T.
func (t *Trajectory) NumSteps() int {
	return len(t.Kinds)
}

// NumLanes returns the batch width.
func (t *Trajectory) NumLanes() int {
	return len(t.Kinds[0])
}

// Creator returns the anyvec.Creator behind the
// trajectory's vectors.
func (t *Trajectory) Creator() anyvec.Creator {
	return t.Observations[0].Creator()
}

// ObservationTape stores the first count observations on
// a tape for loss evaluation.
func (t *Trajectory) ObservationTape(count int) lazyseq.Tape {
	return vecTape(t.Observations[:count], t.NumLanes())
}

// ActionTape stores the recorded actions on a tape,
// padded with zero actions up to count timesteps.
func (t *Trajectory) ActionTape(count int) lazyseq.Tape {
	if count <= len(t.Actions) {
		return vecTape(t.Actions[:count], t.NumLanes())
	}
	c := t.Creator()
	padded := make([]anyvec.Vector, count)
	copy(padded, t.Actions)
	for i := len(t.Actions); i < count; i++ {
		padded[i] = c.MakeVector(t.Actions[0].Len())
	}
	return vecTape(padded, t.NumLanes())
}

// vecTape writes one batch per vector to a reference
// tape, with every lane present.
func vecTape(vecs []anyvec.Vector, lanes int) lazyseq.Tape {
	present := make([]bool, lanes)
	for i := range present {
		present[i] = true
	}
	tape, writer := lazyseq.ReferenceTape(vecs[0].Creator())
	for _, v := range vecs {
		writer <- &anyseq.Batch{Packed: v, Present: present}
	}
	close(writer)
	return tape
}

// rowTape writes time-major float rows to a reference
// tape, padded with zero rows up to count timesteps.
func rowTape(c anyvec.Creator, rows [][]float64, count int) lazyseq.Tape {
	lanes := len(rows[0])
	vecs := make([]anyvec.Vector, count)
	for i := range vecs {
		if i < len(rows) {
			vecs[i] = c.MakeVectorData(c.MakeNumericList(rows[i]))
		} else {
			vecs[i] = c.MakeVector(lanes)
		}
	}
	return vecTape(vecs, lanes)
}

// constRows creates count rows of the given width, all
// set to value.
func constRows(count, width int, value float64) [][]float64 {
	rows := make([][]float64, count)
	for i := range rows {
		row := make([]float64, width)
		for j := range row {
			row[j] = value
		}
		rows[i] = row
	}
	return rows
}

// flattenRows joins time-major rows into one flat slice,
// time outer and lane inner.
func flattenRows(rows [][]float64) []float64 {
	res := make([]float64, 0, len(rows)*len(rows[0]))
	for _, row := range rows {
		res = append(res, row...)
	}
	return res
}

// unflattenRows is the inverse of flattenRows.
func unflattenRows(flat []float64, lanes int) [][]float64 {
	res := make([][]float64, 0, len(flat)/lanes)
	for i := 0; i < len(flat); i += lanes {
		res = append(res, flat[i:i+lanes])
	}
	return res
}
