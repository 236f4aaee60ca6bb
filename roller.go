package anyagent

import (
	"errors"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A Frame is one timestep of a rollout, covering every
// lane.
//
// Observations holds the packed observations the actions
// were sampled from; Kinds and Rewards describe the steps
// those actions produced.
type Frame struct {
	Kinds        []StepKind
	Observations anyvec.Vector
	Actions      anyvec.Vector
	Rewards      []float64
}

// A Roller produces trajectories by running an agent in
// one or more environments, one lane per environment.
type Roller struct {
	// Agent samples the actions and consumes the
	// trajectory.
	Agent Agent

	// MaxSteps, if non-zero, stops the rollout once this
	// many non-terminal steps have been collected across
	// all lanes.
	MaxSteps int

	// MaxEpisodes, if non-zero, stops the rollout once
	// this many episodes have completed across all lanes.
	MaxEpisodes int

	// StepCallbacks are invoked in order with every new
	// frame. Callbacks are side-effecting observers;
	// failures in them are not intercepted.
	StepCallbacks []func(f *Frame)
}

// Rollout resets the environments and collects a bounded
// trajectory.
//
// Every call starts fresh episodes: a partial episode left
// over from a previous step-bounded call is not resumed.
func (r *Roller) Rollout(envs ...Env) (*Trajectory, error) {
	t, err := r.rollout(envs)
	return t, essentials.AddCtx("rollout", err)
}

// Run collects a trajectory like Rollout and hands it to
// the agent's Update, returning the update's loss.
func (r *Roller) Run(envs ...Env) (float64, error) {
	t, err := r.Rollout(envs...)
	if err != nil {
		return 0, err
	}
	return r.Agent.Update(t)
}

func (r *Roller) rollout(envs []Env) (*Trajectory, error) {
	if len(envs) == 0 {
		return nil, errors.New("no environments")
	}
	if r.MaxSteps == 0 && r.MaxEpisodes == 0 {
		return nil, errors.New("no step or episode limit")
	}

	cur := make([]*Step, len(envs))
	for i, e := range envs {
		step, err := e.Reset()
		if err != nil {
			return nil, err
		}
		cur[i] = step
	}
	c := cur[0].Observation.Creator()

	traj := &Trajectory{}
	state := r.Agent.Start(len(envs))
	var steps, episodes int
	for (r.MaxSteps == 0 || steps < r.MaxSteps) &&
		(r.MaxEpisodes == 0 || episodes < r.MaxEpisodes) {
		obs := packObservations(c, cur)
		newState, actions := r.Agent.Step(state, obs)

		frame := &Frame{
			Kinds:        make([]StepKind, len(envs)),
			Observations: obs,
			Actions:      actions,
			Rewards:      make([]float64, len(envs)),
		}
		actSize := actions.Len() / len(envs)
		for i, e := range envs {
			action := actions.Slice(i*actSize, (i+1)*actSize)
			next, err := e.Step(action)
			if err != nil {
				return nil, err
			}
			frame.Kinds[i] = next.Kind
			frame.Rewards[i] = next.Reward
			if next.Kind == Last {
				episodes++
			} else {
				steps++
			}
			cur[i] = next
		}
		for _, cb := range r.StepCallbacks {
			cb(frame)
		}

		traj.Kinds = append(traj.Kinds, frame.Kinds)
		traj.Observations = append(traj.Observations, obs)
		traj.Actions = append(traj.Actions, actions)
		traj.Rewards = append(traj.Rewards, frame.Rewards)
		state = newState
	}

	// The stopping observation is kept as the input for
	// value bootstrapping.
	traj.Observations = append(traj.Observations, packObservations(c, cur))

	return traj, nil
}

func packObservations(c anyvec.Creator, steps []*Step) anyvec.Vector {
	vecs := make([]anyvec.Vector, len(steps))
	for i, s := range steps {
		vecs[i] = s.Observation
	}
	return c.Concat(vecs...)
}
