package anyagent

import (
	"math"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec/anyvec64"
)

func testPPOTrajectory(t *testing.T, agent Agent, episodes int) *Trajectory {
	c := anyvec64.DefaultCreator{}
	roller := &Roller{Agent: agent, MaxEpisodes: episodes}
	env := &testEnv{creator: c, obs: []float64{0.2, -0.1, 0.5}, episodeLen: 2}
	traj, err := roller.Rollout(env)
	if err != nil {
		t.Fatal(err)
	}
	return traj
}

func TestPPOLoss(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	agent := &PPO{
		Block:       identityBlock(c),
		ActionSpace: Softmax{},
		StepSize:    0.01,
		Advantager:  &EmpiricalAdvantage{Discount: 0.9},
		Epochs:      1,
	}
	traj := testPPOTrajectory(t, agent, 1)

	loss, err := agent.Update(traj)
	if err != nil {
		t.Fatal(err)
	}

	// The block has no parameters, so every ratio is
	// exactly 1 and the surrogate reduces to the mean
	// advantage.
	value := 0.5
	returns := []float64{1 + 0.9, 1}
	var expected float64
	for _, ret := range returns {
		expected -= (ret - value) / 2
		expected += (value - ret) * (value - ret) / 2
	}
	if math.Abs(loss-expected) > 1e-9 {
		t.Errorf("expected loss %f but got %f", expected, loss)
	}
}

func TestPPOClippingNoop(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	clipped := &PPO{
		Block:       identityBlock(c),
		ActionSpace: Softmax{},
		StepSize:    0.01,
		Advantager:  &GAE{Discount: 0.9, Lambda: 0.95},
		Epochs:      1,
	}
	unclipped := &PPO{
		Block:       clipped.Block,
		ActionSpace: Softmax{},
		StepSize:    0.01,
		Advantager:  clipped.Advantager,
		Epochs:      1,
		Unclipped:   true,
	}
	traj := testPPOTrajectory(t, clipped, 2)

	// With an unchanging policy, every importance ratio
	// is 1, well inside the clipping range.
	loss1, err := clipped.Update(traj)
	if err != nil {
		t.Fatal(err)
	}
	loss2, err := unclipped.Update(traj)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(loss1-loss2) > 1e-9 {
		t.Errorf("clipped loss %f does not match unclipped loss %f", loss1, loss2)
	}
}

func TestPPOTDLambdaFallback(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	flagged := &PPO{
		Block:          identityBlock(c),
		ActionSpace:    Softmax{},
		StepSize:       0.01,
		Advantager:     &EmpiricalAdvantage{Discount: 0.9},
		Epochs:         1,
		TDLambdaReturn: true,
	}
	plain := &PPO{
		Block:       flagged.Block,
		ActionSpace: Softmax{},
		StepSize:    0.01,
		Advantager:  flagged.Advantager,
		Epochs:      1,
	}
	traj := testPPOTrajectory(t, flagged, 2)

	loss1, err := flagged.Update(traj)
	if err != nil {
		t.Fatal(err)
	}
	loss2, err := plain.Update(traj)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(loss1-loss2) > 1e-9 {
		t.Errorf("TD-lambda flag should fall back for non-GAE advantages: "+
			"%f vs %f", loss1, loss2)
	}

	gaeFlagged := &PPO{
		Block:          flagged.Block,
		ActionSpace:    Softmax{},
		StepSize:       0.01,
		Advantager:     &GAE{Discount: 0.9, Lambda: 0.5},
		Epochs:         1,
		TDLambdaReturn: true,
	}
	gaePlain := &PPO{
		Block:       flagged.Block,
		ActionSpace: Softmax{},
		StepSize:    0.01,
		Advantager:  gaeFlagged.Advantager,
		Epochs:      1,
	}
	loss3, err := gaeFlagged.Update(traj)
	if err != nil {
		t.Fatal(err)
	}
	loss4, err := gaePlain.Update(traj)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(loss3-loss4) < 1e-9 {
		t.Error("TD-lambda target should differ from the discounted return")
	}
}

func TestAdaptiveKLPenaltyConstruction(t *testing.T) {
	if _, err := NewAdaptiveKLPenalty(0.01, 1, 0); err == nil {
		t.Error("expected an error for a zero scale")
	}
	if _, err := NewAdaptiveKLPenalty(0.01, 1, -1.5); err == nil {
		t.Error("expected an error for a negative scale")
	}
	if _, err := NewAdaptiveKLPenalty(0.01, 1, 1.5); err != nil {
		t.Error(err)
	}
}

func TestKLPenaltyTerm(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	klTerm := func(k *KLPenalty, klMean float64) float64 {
		res := k.penalty(c, anydiff.NewConst(c.MakeVectorData(
			c.MakeNumericList([]float64{klMean}))))
		return vecToFloats(res.Output())[0]
	}

	adaptive, err := NewAdaptiveKLPenalty(0.01, 0.5, 1.5)
	if err != nil {
		t.Fatal(err)
	}

	// Above the hinge threshold of 2*Target, the squared
	// hinge and the beta term both contribute.
	expected := 1000*0.03*0.03 + 0.5*0.05
	if actual := klTerm(adaptive, 0.05); math.Abs(actual-expected) > 1e-9 {
		t.Errorf("expected penalty %f but got %f", expected, actual)
	}

	// Below the threshold only the beta term remains.
	expected = 0.5 * 0.015
	if actual := klTerm(adaptive, 0.015); math.Abs(actual-expected) > 1e-9 {
		t.Errorf("expected penalty %f but got %f", expected, actual)
	}

	fixed := &KLPenalty{Target: 0.01}
	expected = 1000 * 0.03 * 0.03
	if actual := klTerm(fixed, 0.05); math.Abs(actual-expected) > 1e-9 {
		t.Errorf("expected penalty %f but got %f", expected, actual)
	}
	if actual := klTerm(fixed, 0.015); actual != 0 {
		t.Errorf("expected penalty 0 but got %f", actual)
	}
}

func TestKLPenaltyAdjust(t *testing.T) {
	penalty := &KLPenalty{Target: 0.01, Beta: 1, BetaScale: 1.5}

	// Above Target*Tolerance, beta grows.
	penalty.adjust(0.02)
	if math.Abs(penalty.Beta-1.5) > 1e-9 {
		t.Errorf("expected beta 1.5 but got %f", penalty.Beta)
	}

	// Inside the tolerance band, beta is unchanged.
	penalty.Beta = 1
	penalty.adjust(0.01)
	if penalty.Beta != 1 {
		t.Errorf("expected beta 1 but got %f", penalty.Beta)
	}

	// Below Target/Tolerance, beta shrinks.
	penalty.adjust(0.001)
	if math.Abs(penalty.Beta-1/1.5) > 1e-9 {
		t.Errorf("expected beta %f but got %f", 1/1.5, penalty.Beta)
	}

	// Shrinking bottoms out at the floor.
	penalty.Beta = 1e-6
	penalty.adjust(0)
	if penalty.Beta != 1e-6 {
		t.Errorf("expected beta 1e-6 but got %f", penalty.Beta)
	}
}

func TestPPOAdaptiveBeta(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	penalty, err := NewAdaptiveKLPenalty(0.01, 1, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	agent := &PPO{
		Block:       identityBlock(c),
		ActionSpace: Softmax{},
		StepSize:    0.01,
		Advantager:  &GAE{Discount: 0.9, Lambda: 0.95},
		Epochs:      2,
		KL:          penalty,
	}
	traj := testPPOTrajectory(t, agent, 1)

	if _, err := agent.Update(traj); err != nil {
		t.Fatal(err)
	}

	// The parameterless policy cannot move, so the
	// realized KL is 0 and beta shrinks.
	if math.Abs(penalty.Beta-1/1.5) > 1e-9 {
		t.Errorf("expected beta %f but got %f", 1/1.5, penalty.Beta)
	}
}
