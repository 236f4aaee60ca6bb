package anyagent

// An AdvantageEstimate is the result of an advantage
// computation over one trajectory.
type AdvantageEstimate struct {
	// Advantages contains a time-major advantage value
	// for every timestep and lane.
	Advantages [][]float64

	kinds       [][]StepKind
	rewards     [][]float64
	discount    float64
	finalValues []float64
	returns     [][]float64
}

// DiscountedReturns returns the discounted returns for
// the trajectory the estimate was computed from,
// computing them on first use.
func (a *AdvantageEstimate) DiscountedReturns() [][]float64 {
	if a.returns == nil {
		a.returns = DiscountedReturns(a.kinds, a.rewards, a.discount, a.finalValues)
	}
	return a.returns
}

// An Advantager estimates action advantages from a
// trajectory and a value baseline.
//
// The kinds, rewards and values arguments are time-major
// with T rows; finalValues contains one bootstrap value
// per lane for the step following the window.
type Advantager interface {
	Estimate(kinds [][]StepKind, rewards, values [][]float64,
		finalValues []float64) *AdvantageEstimate
}

// EmpiricalAdvantage estimates advantages as the
// difference between the empirical discounted return and
// the value baseline.
type EmpiricalAdvantage struct {
	// Discount is the reward discount factor.
	Discount float64
}

// Estimate computes discountedReturn - value at every
// timestep.
func (e *EmpiricalAdvantage) Estimate(kinds [][]StepKind, rewards,
	values [][]float64, finalValues []float64) *AdvantageEstimate {
	res := &AdvantageEstimate{
		kinds:       kinds,
		rewards:     rewards,
		discount:    e.Discount,
		finalValues: finalValues,
	}
	returns := res.DiscountedReturns()
	res.Advantages = make([][]float64, len(rewards))
	for t, row := range returns {
		advRow := make([]float64, len(row))
		for lane, ret := range row {
			advRow[lane] = ret - values[t][lane]
		}
		res.Advantages[t] = advRow
	}
	return res
}

// GAE implements Generalized Advantage Estimation.
//
// See https://arxiv.org/abs/1506.02438.
type GAE struct {
	// Discount is the reward discount factor.
	Discount float64

	// Lambda blends the per-horizon estimators.
	// A lambda of 0 is high-bias and low-variance.
	// A lambda of 1 recovers the empirical advantage.
	Lambda float64
}

// Estimate computes the GAE recurrence.
//
// The discounted returns attached to the estimate are
// always the plain empirical returns, independent of
// Lambda.
func (g *GAE) Estimate(kinds [][]StepKind, rewards, values [][]float64,
	finalValues []float64) *AdvantageEstimate {
	lanes := len(rewards[0])
	if finalValues == nil {
		finalValues = make([]float64, lanes)
	}
	acc := make([]float64, lanes)
	advantages := make([][]float64, len(rewards))
	for t := len(rewards) - 1; t >= 0; t-- {
		row := make([]float64, lanes)
		for lane, reward := range rewards[t] {
			nextValue := finalValues[lane]
			if t+1 < len(rewards) {
				nextValue = values[t+1][lane]
			}
			if kinds[t][lane] == Last {
				nextValue = 0
				acc[lane] = 0
			}
			delta := reward + g.Discount*nextValue - values[t][lane]
			acc[lane] = delta + g.Discount*g.Lambda*acc[lane]
			row[lane] = acc[lane]
		}
		advantages[t] = row
	}
	return &AdvantageEstimate{
		Advantages:  advantages,
		kinds:       kinds,
		rewards:     rewards,
		discount:    g.Discount,
		finalValues: finalValues,
	}
}
