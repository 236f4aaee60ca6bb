package experiments

import (
	"github.com/unixpickle/anyagent"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anynet/anysgd"
)

// MakeAgent creates a training agent for a policy block.
//
// For REINFORCE, the block outputs action logits; for the
// actor-critic algorithms it outputs action logits
// followed by a value estimate.
func MakeAgent(t *TrainingFlags, block anyrnn.Block) anyagent.Agent {
	params := anynet.AllParameters(block)
	switch t.Algorithm.String() {
	case "reinforce":
		return &anyagent.Reinforce{
			Block:       block,
			ActionSpace: anyagent.Softmax{},
			Params:      params,
			Transformer: &anysgd.Adam{},
			StepSize:    t.StepSize,
			Discount:    t.Discount,
			EntropyReg:  t.EntropyReg,
			Normalizer:  &anyagent.Normalizer{},
		}
	case "a2c":
		return &anyagent.A2C{
			Block:       block,
			ActionSpace: anyagent.Softmax{},
			Params:      params,
			Transformer: &anysgd.Adam{},
			StepSize:    t.StepSize,
			Advantager: &anyagent.GAE{
				Discount: t.Discount,
				Lambda:   t.Lambda,
			},
			EntropyReg: t.EntropyReg,
			Normalizer: &anyagent.Normalizer{},
		}
	default:
		return &anyagent.PPO{
			Block:       block,
			ActionSpace: anyagent.Softmax{},
			Params:      params,
			Transformer: &anysgd.Adam{},
			StepSize:    t.StepSize,
			Advantager: &anyagent.GAE{
				Discount: t.Discount,
				Lambda:   t.Lambda,
			},
			Epsilon:    t.Epsilon,
			Epochs:     t.Epochs,
			EntropyReg: t.EntropyReg,
			Normalizer: &anyagent.Normalizer{},
		}
	}
}
