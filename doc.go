// Package anyagent trains decision-making agents with
// policy-gradient reinforcement learning.
//
// It provides a batched trajectory model, a rollout loop,
// discounted-return and advantage estimation, and three
// update algorithms built on top of them: REINFORCE,
// advantage actor-critic (A2C), and Proximal Policy
// Optimization (PPO).
//
// Policies are anyrnn blocks, losses are anydiff graphs,
// and parameter updates go through anysgd transformers,
// so the package never differentiates or stores
// parameters itself.
package anyagent
