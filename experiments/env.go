package experiments

import (
	"io"

	"github.com/unixpickle/anyagent"
)

// Env is an environment with a Close() method for
// releasing the environment's resources.
type Env interface {
	io.Closer
	anyagent.Env
}

// CloseEnvs closes every environment in the list.
func CloseEnvs(envs []Env) {
	for _, e := range envs {
		e.Close()
	}
}

// AgentEnvs converts the environment list for use with an
// anyagent.Roller.
func AgentEnvs(envs []Env) []anyagent.Env {
	res := make([]anyagent.Env, len(envs))
	for i, e := range envs {
		res[i] = e
	}
	return res
}
