package anyagent

import (
	"math"
	"math/rand"
	"testing"
)

func TestGAEFullHorizon(t *testing.T) {
	gen := rand.New(rand.NewSource(1337))
	const numSteps = 9
	const lanes = 3

	kinds := make([][]StepKind, numSteps)
	rewards := make([][]float64, numSteps)
	values := make([][]float64, numSteps)
	for i := range kinds {
		kinds[i] = make([]StepKind, lanes)
		rewards[i] = make([]float64, lanes)
		values[i] = make([]float64, lanes)
		for lane := range kinds[i] {
			if gen.Float64() < 0.25 {
				kinds[i][lane] = Last
			} else {
				kinds[i][lane] = Transition
			}
			rewards[i][lane] = gen.NormFloat64()
			values[i][lane] = gen.NormFloat64()
		}
	}
	finalValues := []float64{gen.NormFloat64(), gen.NormFloat64(), gen.NormFloat64()}

	gae := &GAE{Discount: 0.9, Lambda: 1}
	empirical := &EmpiricalAdvantage{Discount: 0.9}
	actual := gae.Estimate(kinds, rewards, values, finalValues)
	expected := empirical.Estimate(kinds, rewards, values, finalValues)
	for i := range expected.Advantages {
		for lane := range expected.Advantages[i] {
			a := actual.Advantages[i][lane]
			x := expected.Advantages[i][lane]
			if math.Abs(a-x) > 1e-9 {
				t.Errorf("step %d lane %d: expected %f but got %f", i, lane, x, a)
			}
		}
	}
}

func TestGAEOneStep(t *testing.T) {
	kinds := [][]StepKind{{Transition}, {Transition}, {Last}}
	rewards := [][]float64{{1}, {2}, {3}}
	values := [][]float64{{0.5}, {0.25}, {0.125}}

	gae := &GAE{Discount: 0.5, Lambda: 0}
	est := gae.Estimate(kinds, rewards, values, []float64{7})

	// With lambda 0, each advantage is the one-step TD
	// error.
	expected := []float64{
		1 + 0.5*0.25 - 0.5,
		2 + 0.5*0.125 - 0.25,
		3 - 0.125,
	}
	for i, x := range expected {
		if math.Abs(est.Advantages[i][0]-x) > 1e-9 {
			t.Errorf("step %d: expected %f but got %f", i, x, est.Advantages[i][0])
		}
	}
}

func TestGAENilBootstrap(t *testing.T) {
	kinds := [][]StepKind{{Transition}, {Transition}, {Transition}}
	rewards := [][]float64{{1}, {-0.5}, {2}}
	values := [][]float64{{0.3}, {-0.1}, {0.6}}

	gae := &GAE{Discount: 0.9, Lambda: 0.95}
	withNil := gae.Estimate(kinds, rewards, values, nil)
	withZeros := gae.Estimate(kinds, rewards, values, []float64{0})
	for i, row := range withZeros.Advantages {
		for lane, x := range row {
			if math.Abs(withNil.Advantages[i][lane]-x) > 1e-9 {
				t.Errorf("step %d lane %d: expected %f but got %f", i, lane, x,
					withNil.Advantages[i][lane])
			}
		}
	}
}

func TestEmpiricalAdvantageReturns(t *testing.T) {
	kinds := [][]StepKind{{Transition}, {Last}}
	rewards := [][]float64{{1}, {2}}
	values := [][]float64{{0.5}, {0.25}}

	adv := &EmpiricalAdvantage{Discount: 0.5}
	est := adv.Estimate(kinds, rewards, values, []float64{3})

	returns := est.DiscountedReturns()
	if math.Abs(returns[0][0]-2) > 1e-9 || math.Abs(returns[1][0]-2) > 1e-9 {
		t.Errorf("unexpected returns: %v", returns)
	}
	if math.Abs(est.Advantages[0][0]-1.5) > 1e-9 ||
		math.Abs(est.Advantages[1][0]-1.75) > 1e-9 {
		t.Errorf("unexpected advantages: %v", est.Advantages)
	}
}
