package sim

import (
	pf "github.com/jhoydich/range-localizer"
)

// Wheel speeds used by the scripted moves, in rad/s.
const (
	CruiseSpeed = 2.0
)

// Move is one scripted segment: a wheel command held for Steps ticks.
type Move struct {
	Left, Right float64
	Steps       int
}

// Forward, Backward, TurnLeft, TurnRight and Stop build moves at CruiseSpeed.
func Forward(steps int) Move   { return Move{CruiseSpeed, CruiseSpeed, steps} }
func Backward(steps int) Move  { return Move{-CruiseSpeed, -CruiseSpeed, steps} }
func TurnLeft(steps int) Move  { return Move{-CruiseSpeed, CruiseSpeed, steps} }
func TurnRight(steps int) Move { return Move{CruiseSpeed, -CruiseSpeed, steps} }
func Stop(steps int) Move      { return Move{0, 0, steps} }

// Script replays a fixed sequence of moves as per-tick commands, standing in
// for interactive driving.
type Script struct {
	moves []Move
	dt    float64
	move  int
	step  int
}

// NewScript returns a script ticking every dt seconds.
func NewScript(dt float64, moves ...Move) *Script {
	return &Script{moves: moves, dt: dt}
}

// DefaultScript wanders around the middle of the fallback map.
func DefaultScript(dt float64) *Script {
	return NewScript(dt,
		Stop(10),
		Forward(120),
		TurnLeft(40),
		Forward(80),
		TurnRight(40),
		Backward(60),
		TurnLeft(20),
		Forward(100),
		Stop(10),
	)
}

// Next returns the next command; ok is false once the script is exhausted.
func (s *Script) Next() (cmd pf.MotionCommand, ok bool) {
	for s.move < len(s.moves) && s.step >= s.moves[s.move].Steps {
		s.move++
		s.step = 0
	}
	if s.move >= len(s.moves) {
		return pf.MotionCommand{}, false
	}
	m := s.moves[s.move]
	s.step++
	return pf.MotionCommand{Left: m.Left, Right: m.Right, DT: s.dt}, true
}

// Len is the total number of ticks in the script.
func (s *Script) Len() int {
	n := 0
	for _, m := range s.moves {
		n += m.Steps
	}
	return n
}
