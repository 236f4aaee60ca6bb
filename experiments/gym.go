package experiments

import (
	"github.com/unixpickle/anyagent"
	"github.com/unixpickle/anyvec"
	gym "github.com/unixpickle/gym-socket-api/binding-go"
)

// CreateGymEnv connects to a gym-socket-api server and
// wraps the environment for discrete-action rollouts.
func CreateGymEnv(c anyvec.Creator, e *EnvFlags) (Env, error) {
	client, err := gym.Make(e.GymHost, e.Name)
	if err != nil {
		return nil, err
	}
	if e.RecordDir != "" {
		if err := client.Monitor(e.RecordDir, false, false, false); err != nil {
			client.Close()
			return nil, err
		}
	}
	return &gymEnv{creator: c, env: client, done: true}, nil
}

type gymEnv struct {
	creator anyvec.Creator
	env     gym.Env
	done    bool
}

func (g *gymEnv) Reset() (*anyagent.Step, error) {
	obs, err := g.env.Reset()
	if err != nil {
		return nil, err
	}
	vec, err := g.vector(obs)
	if err != nil {
		return nil, err
	}
	g.done = false
	return &anyagent.Step{Kind: anyagent.First, Observation: vec}, nil
}

func (g *gymEnv) Step(action anyvec.Vector) (*anyagent.Step, error) {
	if g.done {
		return g.Reset()
	}
	obs, reward, done, _, err := g.env.Step(anyvec.MaxIndex(action))
	if err != nil {
		return nil, err
	}
	vec, err := g.vector(obs)
	if err != nil {
		return nil, err
	}
	kind := anyagent.Transition
	if done {
		kind = anyagent.Last
		g.done = true
	}
	return &anyagent.Step{Kind: kind, Observation: vec, Reward: reward}, nil
}

func (g *gymEnv) Close() error {
	return g.env.Close()
}

func (g *gymEnv) vector(obs gym.Obs) (anyvec.Vector, error) {
	comps, err := gym.Flatten(obs)
	if err != nil {
		return nil, err
	}
	return g.creator.MakeVectorData(g.creator.MakeNumericList(comps)), nil
}
