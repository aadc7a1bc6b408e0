package main

import (
	"fmt"
	"math"

	pf "github.com/jhoydich/range-localizer"
	"github.com/jhoydich/range-localizer/sim"
)

func main() {
	worldMap := pf.FallbackMap()

	filter, err := pf.New(pf.DefaultConfig(), worldMap, pf.NewRand(1))
	if err != nil {
		panic(err)
	}

	agent := sim.NewAgent(pf.NewPose(0, 0, math.Pi/2), pf.NewRand(2))
	world := sim.NewWorld(worldMap, .05, pf.NewRand(3))

	for i := 0; i < 20; i++ {
		cmd := pf.MotionCommand{Left: 2, Right: 2, DT: .032}
		if i >= 10 {
			cmd = pf.MotionCommand{Left: -1, Right: 1, DT: .032}
		}

		agent.Drive(cmd)
		reading := world.Sense(agent.Position())

		est := filter.Step(cmd, reading)
		p := agent.Position()
		fmt.Println("Step:", i+1, "Agent:", p.X, p.Y, p.Theta, "Filter:", est.X, est.Y, est.Theta, "Error:", est.DistanceTo(p))
	}
}
