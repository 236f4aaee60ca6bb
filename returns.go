package anyagent

// DiscountedReturns computes the discounted return at
// every timestep by scanning the rewards backward in
// time.
//
// The kinds and rewards arguments are time-major with T
// rows. The finalValues argument, if non-nil, contains
// one bootstrap value per lane which extends the return
// computation past the end of the window; a nil
// finalValues is treated as all zeros.
//
// The value carried backward across a timestep is zeroed
// whenever that timestep ends an episode, so returns
// never leak across episode boundaries.
func DiscountedReturns(kinds [][]StepKind, rewards [][]float64, discount float64,
	finalValues []float64) [][]float64 {
	lanes := len(rewards[0])
	carry := make([]float64, lanes)
	if finalValues != nil {
		copy(carry, finalValues)
	}
	res := make([][]float64, len(rewards))
	for t := len(rewards) - 1; t >= 0; t-- {
		row := make([]float64, lanes)
		for lane, reward := range rewards[t] {
			if kinds[t][lane] == Last {
				carry[lane] = 0
			}
			carry[lane] = reward + discount*carry[lane]
			row[lane] = carry[lane]
		}
		res[t] = row
	}
	return res
}
