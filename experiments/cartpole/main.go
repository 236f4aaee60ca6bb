// Trains a feedforward policy on a native cart-pole
// environment.

package main

import (
	"flag"
	"log"

	"github.com/unixpickle/anyagent"
	"github.com/unixpickle/anyagent/experiments"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec/anyvec32"
)

const (
	NumObs     = 4
	NumActions = 2
)

func main() {
	training := &experiments.TrainingFlags{}
	training.AddFlags()
	numEnvs := flag.Int("numenvs", 8, "parallel environments")
	numBatches := flag.Int("batches", 200, "training batches")
	hidden := flag.Int("hidden", 32, "hidden layer size")
	flag.Parse()

	creator := anyvec32.CurrentCreator()

	outSize := NumActions
	if training.ActorCritic() {
		outSize++
	}
	block := &anyrnn.LayerBlock{
		Layer: anynet.Net{
			anynet.NewFC(creator, NumObs, *hidden),
			anynet.Tanh,
			anynet.NewFCZero(creator, *hidden, outSize),
		},
	}
	agent := experiments.MakeAgent(training, block)

	envs := make([]experiments.Env, *numEnvs)
	for i := range envs {
		envs[i] = &experiments.CartPole{Creator: creator}
	}
	defer experiments.CloseEnvs(envs)

	var rewardSum float64
	var episodes int
	roller := &anyagent.Roller{
		Agent:    agent,
		MaxSteps: training.BatchSteps,
		StepCallbacks: []func(f *anyagent.Frame){
			func(f *anyagent.Frame) {
				for i, kind := range f.Kinds {
					rewardSum += f.Rewards[i]
					if kind == anyagent.Last {
						episodes++
					}
				}
			},
		},
	}

	for batchIdx := 0; batchIdx < *numBatches; batchIdx++ {
		rewardSum = 0
		episodes = 0
		loss, err := roller.Run(experiments.AgentEnvs(envs)...)
		must(err)
		if episodes == 0 {
			episodes = 1
		}
		log.Printf("batch %d: mean_reward=%f loss=%f", batchIdx,
			rewardSum/float64(episodes), loss)
	}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
