package anyagent

import (
	"math"
	"math/rand"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/approb"
)

func TestSoftmaxLogProb(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	logits := []float64{1, 2, 3, -1, 0, 1}
	actions := []float64{0, 0, 1, 1, 0, 0}
	params := anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(logits)))
	out := c.MakeVectorData(c.MakeNumericList(actions))

	actual := vecToFloats(Softmax{}.LogProb(params, out, 2).Output())
	expected := []float64{
		actionLogProb(logits[:3], actions[:3]),
		actionLogProb(logits[3:], actions[3:]),
	}
	for i, x := range expected {
		if math.Abs(actual[i]-x) > 1e-9 {
			t.Errorf("row %d: expected %f but got %f", i, x, actual[i])
		}
	}
}

func TestSoftmaxEntropy(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	logits := []float64{0, 0, 1, 2}
	params := anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(logits)))

	actual := vecToFloats(Softmax{}.Entropy(params, 2).Output())

	var expected [2]float64
	for row := 0; row < 2; row++ {
		for _, logProb := range logSoftmax(logits[row*2 : (row+1)*2]) {
			expected[row] -= math.Exp(logProb) * logProb
		}
	}
	for i, x := range expected {
		if math.Abs(actual[i]-x) > 1e-9 {
			t.Errorf("row %d: expected %f but got %f", i, x, actual[i])
		}
	}
	if math.Abs(actual[0]-math.Log(2)) > 1e-9 {
		t.Errorf("uniform entropy should be log(2) but got %f", actual[0])
	}
}

func TestSoftmaxKL(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	logits1 := []float64{1, 2, 3}
	logits2 := []float64{0.5, -1, 2}
	params1 := anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(logits1)))
	params2 := anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(logits2)))

	same := vecToFloats(Softmax{}.KL(params1, params1, 1).Output())
	if math.Abs(same[0]) > 1e-9 {
		t.Errorf("KL between identical distributions should be 0 but got %f", same[0])
	}

	actual := vecToFloats(Softmax{}.KL(params1, params2, 1).Output())
	logs1 := logSoftmax(logits1)
	logs2 := logSoftmax(logits2)
	var expected float64
	for i, l := range logs1 {
		expected += math.Exp(l) * (l - logs2[i])
	}
	if math.Abs(actual[0]-expected) > 1e-9 {
		t.Errorf("expected %f but got %f", expected, actual[0])
	}
}

func TestSoftmaxSample(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	probs := []float64{0.3, 0.5, 0.15, 0.05}
	logits := make([]float64, len(probs))
	for i, p := range probs {
		logits[i] = math.Log(p)
	}
	params := c.MakeVectorData(c.MakeNumericList(logits))

	corr := approb.Correlation(50000, 0.3, func() float64 {
		p := rand.Float64()
		for i, prob := range probs {
			p -= prob
			if p < 0 {
				return float64(i)
			}
		}
		return float64(len(probs) - 1)
	}, func() float64 {
		sample := Softmax{}.Sample(params, 1)
		return float64(anyvec.MaxIndex(sample))
	})
	if corr < 0.9999 {
		t.Error("correlation should be near 1, but got", corr)
	}
}
