package anyagent

import "github.com/unixpickle/anyvec"

// A StepKind tags one timestep of one environment.
type StepKind int

const (
	// First marks the initial step of an episode.
	First StepKind = iota

	// Transition marks a step in the middle of an
	// episode.
	Transition

	// Last marks the final step of an episode.
	Last
)

// String returns a human-readable representation of the
// kind, like "first" or "last".
func (s StepKind) String() string {
	switch s {
	case First:
		return "first"
	case Transition:
		return "transition"
	case Last:
		return "last"
	default:
		return ""
	}
}

// A Step is the outcome of one environment interaction.
type Step struct {
	Kind        StepKind
	Observation anyvec.Vector
	Reward      float64
}

// An Env is an interactive environment.
//
// Within an episode, Step produces Transition steps and
// finally a Last step. Calling Step after a Last step
// begins a new episode and produces its First step, whose
// reward is zero.
type Env interface {
	// Reset begins a new episode and produces its First
	// step.
	Reset() (*Step, error)

	// Step advances the episode with an action.
	Step(action anyvec.Vector) (*Step, error)
}
