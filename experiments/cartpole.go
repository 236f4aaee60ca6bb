package experiments

import (
	"math"
	"math/rand"

	"github.com/unixpickle/anyagent"
	"github.com/unixpickle/anyvec"
)

const (
	cartPoleGravity   = 9.81
	cartPoleCartMass  = 1.0
	cartPolePoleMass  = 0.1
	cartPoleLength    = 0.5
	cartPoleForce     = 10.0
	cartPoleTau       = 0.02
	cartPoleXLimit    = 2.4
	cartPoleAngle     = 12.0 * math.Pi / 180.0
	cartPoleMaxSteps  = 500
	cartPoleInitNoise = 0.05
)

// CartPole is a native cart-pole balancing environment.
//
// Observations are four components: cart position, cart
// velocity, pole angle, and pole angular velocity. There
// are two actions, push left and push right, and every
// step yields a reward of 1. An episode ends when the cart
// leaves the track, the pole falls too far, or the episode
// reaches its step limit.
type CartPole struct {
	// Creator is used to create observation vectors.
	Creator anyvec.Creator

	// Rand is the source of reset noise.
	// If nil, the global source is used.
	Rand *rand.Rand

	x        float64
	xDot     float64
	theta    float64
	thetaDot float64
	steps    int
	done     bool
}

// Reset begins a new episode near the balanced state.
func (c *CartPole) Reset() (*anyagent.Step, error) {
	c.x = c.noise()
	c.xDot = c.noise()
	c.theta = c.noise()
	c.thetaDot = c.noise()
	c.steps = 0
	c.done = false
	return &anyagent.Step{Kind: anyagent.First, Observation: c.observe()}, nil
}

// Step pushes the cart in the direction of the largest
// action component.
func (c *CartPole) Step(action anyvec.Vector) (*anyagent.Step, error) {
	if c.done {
		return c.Reset()
	}

	force := -cartPoleForce
	if anyvec.MaxIndex(action) == 1 {
		force = cartPoleForce
	}

	totalMass := cartPoleCartMass + cartPolePoleMass
	poleMassLength := cartPolePoleMass * cartPoleLength
	cosTheta := math.Cos(c.theta)
	sinTheta := math.Sin(c.theta)
	temp := (force + poleMassLength*c.thetaDot*c.thetaDot*sinTheta) / totalMass
	thetaAcc := (cartPoleGravity*sinTheta - cosTheta*temp) /
		(cartPoleLength * (4.0/3.0 - cartPolePoleMass*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thetaAcc*cosTheta/totalMass

	c.x += cartPoleTau * c.xDot
	c.xDot += cartPoleTau * xAcc
	c.theta += cartPoleTau * c.thetaDot
	c.thetaDot += cartPoleTau * thetaAcc
	c.steps++

	kind := anyagent.Transition
	failed := c.x < -cartPoleXLimit || c.x > cartPoleXLimit ||
		c.theta < -cartPoleAngle || c.theta > cartPoleAngle
	if failed || c.steps >= cartPoleMaxSteps {
		kind = anyagent.Last
		c.done = true
	}
	return &anyagent.Step{Kind: kind, Observation: c.observe(), Reward: 1}, nil
}

// Close releases the environment's resources.
func (c *CartPole) Close() error {
	return nil
}

func (c *CartPole) observe() anyvec.Vector {
	comps := []float64{c.x, c.xDot, c.theta, c.thetaDot}
	return c.Creator.MakeVectorData(c.Creator.MakeNumericList(comps))
}

func (c *CartPole) noise() float64 {
	if c.Rand != nil {
		return c.Rand.Float64()*2*cartPoleInitNoise - cartPoleInitNoise
	}
	return rand.Float64()*2*cartPoleInitNoise - cartPoleInitNoise
}
