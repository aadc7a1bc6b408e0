package sim

import (
	"io"

	"github.com/jhoydich/range-localizer/drivelog"
)

// Source drives an Agent through a Script and senses the World after every
// tick, yielding the same ticks a recorded drive log would.
type Source struct {
	script *Script
	agent  *Agent
	world  *World
	truth  Truth
	step   int
}

// NewSource wires the three parts together. The agent doubles as the
// ground-truth device until HideTruth is called.
func NewSource(script *Script, agent *Agent, world *World) *Source {
	return &Source{script: script, agent: agent, world: world, truth: WithTruth(agent)}
}

// HideTruth drops the ground-truth device, as on a robot without GPS.
func (s *Source) HideTruth() { s.truth = NoTruth() }

// Next advances the agent one tick; io.EOF once the script is exhausted.
func (s *Source) Next() (drivelog.Tick, error) {
	cmd, ok := s.script.Next()
	if !ok {
		return drivelog.Tick{}, io.EOF
	}
	s.agent.Drive(cmd)
	s.step++

	tick := drivelog.Tick{
		Step:    s.step,
		Command: cmd,
		Reading: s.world.Sense(s.agent.Position()),
	}
	if p, ok := s.truth.Get(); ok {
		tick.Truth = &p
	}
	return tick, nil
}
