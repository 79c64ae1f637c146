// Package engine runs the action pipeline of one service invocation.
//
// An invocation moves through NotStarted, RunningStage(i),
// RunningAction(i, j) and ends Completed or Failed. Stages run in position
// order, actions within a stage in position order with declaration order
// breaking ties.
//
// Every invocation owns a fresh Context: its workspace, its logical clock and
// its trace. Nothing mutable is shared between invocations, so one Runner may
// serve concurrent calls.
//
// Control flow is explicit. Actions return errors; early success is a flag on
// the Context that the runner checks after each action. Nothing unwinds by
// panicking.
package engine
