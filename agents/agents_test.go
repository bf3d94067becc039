package agents

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/pointwalk/pointwalk/logging"
)

func newTestSimulator(t *testing.T, cfg Config) *Simulator {
	t.Helper()
	return NewSimulator(cfg, rand.New(rand.NewSource(1)), logging.NewTestLogger(t))
}

func TestNewSimulator(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GroundHeight = 4
	sim := newTestSimulator(t, cfg)

	all := sim.Agents()
	test.That(t, all, test.ShouldHaveLength, cfg.MouseCount+cfg.CheeseCount)
	test.That(t, sim.Active(KindMouse), test.ShouldHaveLength, cfg.MouseCount)
	test.That(t, sim.Active(KindCheese), test.ShouldHaveLength, 10)
	for i, agent := range all {
		test.That(t, agent.ID, test.ShouldEqual, i)
		test.That(t, agent.Alive, test.ShouldBeTrue)
		test.That(t, agent.Position.Y, test.ShouldEqual, 4)
		test.That(t, math.Abs(agent.Position.X), test.ShouldBeLessThanOrEqualTo, cfg.SpawnSpread)
		test.That(t, math.Abs(agent.Position.Z), test.ShouldBeLessThanOrEqualTo, cfg.SpawnSpread)
		if agent.Kind == KindMouse {
			test.That(t, agent.Direction.Norm(), test.ShouldAlmostEqual, 1)
			test.That(t, agent.Direction.Y, test.ShouldEqual, 0)
		} else {
			test.That(t, agent.Direction, test.ShouldResemble, r3.Vector{})
		}
	}

	// copies do not alias simulator state
	all[0].Alive = false
	test.That(t, sim.Agents()[0].Alive, test.ShouldBeTrue)
}

func TestStepMovesAndClamps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MouseCount = 1
	cfg.CheeseCount = 0
	cfg.TurnChance = 0
	cfg.Speed = 2
	sim := newTestSimulator(t, cfg)
	sim.agents[0].Position = r3.Vector{X: 997, Z: -500}
	sim.agents[0].Direction = r3.Vector{X: 1}

	far := r3.Vector{X: -900, Y: 0, Z: 900}
	test.That(t, sim.Step(far), test.ShouldBeEmpty)
	test.That(t, sim.agents[0].Position, test.ShouldResemble, r3.Vector{X: 999, Z: -500})

	sim.Step(far)
	sim.Step(far)
	test.That(t, sim.agents[0].Position, test.ShouldResemble, r3.Vector{X: 1000, Z: -500})
}

func TestStepTurns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MouseCount = 1
	cfg.CheeseCount = 0
	cfg.TurnChance = 1
	sim := newTestSimulator(t, cfg)
	before := sim.agents[0].Direction

	sim.Step(r3.Vector{X: 5000})
	after := sim.agents[0].Direction
	test.That(t, after, test.ShouldNotResemble, before)
	test.That(t, after.Norm(), test.ShouldAlmostEqual, 1)
}

func TestCaptureIsIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MouseCount = 2
	cfg.CheeseCount = 0
	cfg.TurnChance = 0
	cfg.Speed = 1
	sim := newTestSimulator(t, cfg)
	viewer := r3.Vector{X: 100, Y: 0, Z: 100}
	sim.agents[0].Position = r3.Vector{X: 95, Z: 100}
	sim.agents[0].Direction = r3.Vector{X: 1}
	sim.agents[1].Position = r3.Vector{X: -500, Z: -500}
	sim.agents[1].Direction = r3.Vector{Z: -1}

	events := sim.Step(viewer)
	test.That(t, events, test.ShouldHaveLength, 1)
	test.That(t, events[0].Type, test.ShouldEqual, EventCapture)
	test.That(t, events[0].Agent.ID, test.ShouldEqual, 0)
	test.That(t, events[0].Agent.Alive, test.ShouldBeFalse)
	test.That(t, sim.Captures(), test.ShouldEqual, 1)

	captured := sim.agents[0].Position
	for i := 0; i < 5; i++ {
		test.That(t, sim.Step(viewer), test.ShouldBeEmpty)
	}
	test.That(t, sim.Captures(), test.ShouldEqual, 1)
	test.That(t, sim.agents[0].Position, test.ShouldResemble, captured)
	test.That(t, sim.Active(KindMouse), test.ShouldHaveLength, 1)
}

func TestFlee(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MouseCount = 1
	cfg.CheeseCount = 0
	cfg.TurnChance = 0
	cfg.Speed = 3
	cfg.FleeRadius = 100
	sim := newTestSimulator(t, cfg)
	sim.agents[0].Position = r3.Vector{X: 50}
	sim.agents[0].Direction = r3.Vector{X: -1}

	test.That(t, sim.Step(r3.Vector{Y: 20}), test.ShouldBeEmpty)
	test.That(t, sim.agents[0].Direction, test.ShouldResemble, r3.Vector{X: 1})
	test.That(t, sim.agents[0].Position, test.ShouldResemble, r3.Vector{X: 53})

	// outside the radius the mouse keeps its heading
	sim.agents[0].Direction = r3.Vector{Z: 1}
	sim.Step(r3.Vector{X: -500})
	test.That(t, sim.agents[0].Direction, test.ShouldResemble, r3.Vector{Z: 1})
}

func TestCollect(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MouseCount = 1
	sim := newTestSimulator(t, cfg)
	viewer := r3.Vector{X: 10, Y: 0, Z: 10}
	for i := range sim.agents {
		sim.agents[i].Position = viewer.Add(r3.Vector{X: float64(i)})
	}

	_, ok := sim.Collect(r3.Vector{X: 900, Z: 900})
	test.That(t, ok, test.ShouldBeFalse)

	for i := 1; i <= cfg.CheeseCount; i++ {
		agent, ok := sim.Collect(viewer)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, agent.Kind, test.ShouldEqual, KindCheese)
		// creation order, mice never collected
		test.That(t, agent.ID, test.ShouldEqual, i)
		test.That(t, sim.Collected(), test.ShouldEqual, i)
	}
	test.That(t, sim.Done(), test.ShouldBeTrue)

	for i := 0; i < 3; i++ {
		_, ok := sim.Collect(viewer)
		test.That(t, ok, test.ShouldBeFalse)
	}
	test.That(t, sim.Collected(), test.ShouldEqual, cfg.CheeseCount)
	test.That(t, sim.Active(KindCheese), test.ShouldBeEmpty)
	test.That(t, sim.Active(KindMouse), test.ShouldHaveLength, 1)
}

func TestCollectRadiusIsExclusive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MouseCount = 0
	cfg.CheeseCount = 1
	sim := newTestSimulator(t, cfg)
	sim.agents[0].Position = r3.Vector{X: 30}

	_, ok := sim.Collect(r3.Vector{})
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = sim.Collect(r3.Vector{X: 0.5})
	test.That(t, ok, test.ShouldBeTrue)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	test.That(t, cfg.Validate("game"), test.ShouldBeNil)

	for _, mutate := range []func(*Config){
		func(c *Config) { c.MouseCount = -1 },
		func(c *Config) { c.CheeseCount = -1 },
		func(c *Config) { c.TurnChance = 1.5 },
		func(c *Config) { c.WorldBound = 0 },
		func(c *Config) { c.CaptureRadius = -1 },
	} {
		bad := DefaultConfig()
		mutate(&bad)
		err := bad.Validate("game")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "game")
	}
}

func TestStrings(t *testing.T) {
	test.That(t, KindMouse.String(), test.ShouldEqual, "mouse")
	test.That(t, KindCheese.String(), test.ShouldEqual, "cheese")
	test.That(t, EventCapture.String(), test.ShouldEqual, "capture")
	test.That(t, EventCollect.String(), test.ShouldEqual, "collect")
}
