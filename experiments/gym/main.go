// Trains a policy on an environment served by
// gym-socket-api.

package main

import (
	"flag"
	"log"
	"sync"

	"github.com/unixpickle/anyagent"
	"github.com/unixpickle/anyagent/experiments"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/rip"
)

func main() {
	envFlags := &experiments.EnvFlags{}
	envFlags.AddFlags()
	training := &experiments.TrainingFlags{}
	training.AddFlags()
	obsSize := flag.Int("in", 4, "observation vector size")
	numActions := flag.Int("out", 2, "discrete action count")
	hidden := flag.Int("hidden", 32, "hidden layer size")
	flag.Parse()

	creator := anyvec32.CurrentCreator()

	outSize := *numActions
	if training.ActorCritic() {
		outSize++
	}
	block := &anyrnn.LayerBlock{
		Layer: anynet.Net{
			anynet.NewFC(creator, *obsSize, *hidden),
			anynet.Tanh,
			anynet.NewFCZero(creator, *hidden, outSize),
		},
	}
	agent := experiments.MakeAgent(training, block)

	env, err := experiments.CreateGymEnv(creator, envFlags)
	if err != nil {
		essentials.Die(err)
	}
	defer env.Close()

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

	// Train on a background goroutine so that we can
	// listen for Ctrl+C on the main goroutine.
	var trainLock sync.Mutex
	go func() {
		for batchIdx := 0; true; batchIdx++ {
			trainLock.Lock()
			rewardSum = 0
			episodes = 0
			loss, err := roller.Run(env)
			if err != nil {
				essentials.Die("rollout error:", err)
			}
			if episodes == 0 {
				episodes = 1
			}
			log.Printf("batch %d: mean_reward=%f loss=%f", batchIdx,
				rewardSum/float64(episodes), loss)
			trainLock.Unlock()
		}
	}()

	log.Println("Running. Press Ctrl+C to stop.")
	<-rip.NewRIP().Chan()

	// Avoid closing the environment mid-step.
	trainLock.Lock()
}
