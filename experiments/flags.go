package experiments

import (
	"errors"
	"flag"
)

// An AlgorithmFlag is a flag.Value for choosing a policy
// gradient algorithm.
type AlgorithmFlag struct {
	Algorithm string
}

// String returns the string representation of the
// algorithm.
func (a *AlgorithmFlag) String() string {
	if a.Algorithm == "" {
		return "ppo"
	}
	return a.Algorithm
}

// Set sets the algorithm from a string representation.
func (a *AlgorithmFlag) Set(s string) error {
	switch s {
	case "reinforce", "a2c", "ppo":
		a.Algorithm = s
		return nil
	}
	return errors.New("unknown algorithm: " + s)
}

// AddFlag adds the flag to the flag package's global set
// of flags.
func (a *AlgorithmFlag) AddFlag() {
	a.Algorithm = "ppo"
	flag.Var(a, "algo", "training algorithm (reinforce, a2c, ppo)")
}

// EnvFlags holds parameters for connecting to gym
// environments.
type EnvFlags struct {
	// Name is the name of the environment.
	Name string

	// GymHost is the destination host for an instance of
	// gym-socket-api.
	GymHost string

	// RecordDir is an optional path to where recordings
	// should be stored.
	RecordDir string
}

// AddFlags adds the options to the flag package's global
// set of flags.
func (e *EnvFlags) AddFlags() {
	flag.StringVar(&e.Name, "env", "CartPole-v0", "gym environment name")
	flag.StringVar(&e.GymHost, "gym", "localhost:5001", "host for gym-socket-api")
	flag.StringVar(&e.RecordDir, "record", "", "gym monitor directory")
}

// TrainingFlags holds the parameters shared by the
// training commands.
type TrainingFlags struct {
	Algorithm AlgorithmFlag

	StepSize   float64
	Discount   float64
	Lambda     float64
	Epsilon    float64
	EntropyReg float64
	Epochs     int
	BatchSteps int
}

// AddFlags adds the options to the flag package's global
// set of flags.
func (t *TrainingFlags) AddFlags() {
	t.Algorithm.AddFlag()
	flag.Float64Var(&t.StepSize, "step", 3e-4, "SGD step size (with Adam)")
	flag.Float64Var(&t.Discount, "discount", 0.99, "reward discount factor")
	flag.Float64Var(&t.Lambda, "lambda", 0.95, "GAE coefficient")
	flag.Float64Var(&t.Epsilon, "epsilon", 0.2, "PPO probability epsilon")
	flag.Float64Var(&t.EntropyReg, "reg", 0.01, "entropy regularization strength")
	flag.IntVar(&t.Epochs, "epochs", 10, "SGD epochs per batch (PPO only)")
	flag.IntVar(&t.BatchSteps, "batchsteps", 2048, "minimum steps per batch")
}

// ActorCritic is true if the chosen algorithm expects a
// value estimate after the action parameters.
func (t *TrainingFlags) ActorCritic() bool {
	return t.Algorithm.String() != "reinforce"
}
