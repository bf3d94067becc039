// Package agents runs the mouse and cheese mini game played around the viewer. Mice random walk
// across the ground and are captured when the viewer gets close. Cheese stays put until the
// viewer collects it.
package agents

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"

	"github.com/pointwalk/pointwalk/logging"
	rutils "github.com/pointwalk/pointwalk/utils"
)

// Kind is the kind of an agent.
type Kind int

const (
	// KindMouse roams and can be captured.
	KindMouse Kind = iota
	// KindCheese is stationary and can be collected.
	KindCheese
)

func (k Kind) String() string {
	switch k {
	case KindMouse:
		return "mouse"
	case KindCheese:
		return "cheese"
	default:
		return "unknown"
	}
}

// Agent is a single game entity. Alive turns false once a mouse is captured or a cheese collected
// and never turns back.
type Agent struct {
	ID        int
	Kind      Kind
	Position  r3.Vector
	Direction r3.Vector
	Alive     bool
}

// EventType is what happened to an agent.
type EventType int

const (
	// EventCapture is emitted when the viewer catches a mouse.
	EventCapture EventType = iota
	// EventCollect is emitted when the viewer picks up a cheese.
	EventCollect
)

func (e EventType) String() string {
	if e == EventCapture {
		return "capture"
	}
	return "collect"
}

// Event reports a capture or a collection along with the agent's state at that moment.
type Event struct {
	Type  EventType
	Agent Agent
}

// Config is the game configuration.
type Config struct {
	MouseCount    int     `json:"mouse_count"`
	CheeseCount   int     `json:"cheese_count"`
	Speed         float64 `json:"speed"`
	TurnChance    float64 `json:"turn_chance"`
	WorldBound    float64 `json:"world_bound"`
	CaptureRadius float64 `json:"capture_radius"`
	CollectRadius float64 `json:"collect_radius"`
	SpawnSpread   float64 `json:"spawn_spread"`
	GroundHeight  float64 `json:"ground_height"`
	// FleeRadius makes mice run straight away from a viewer closer than this. Zero disables it.
	FleeRadius float64 `json:"flee_radius"`
}

// DefaultConfig returns the reference game settings.
func DefaultConfig() Config {
	return Config{
		MouseCount:    5,
		CheeseCount:   10,
		Speed:         1.5,
		TurnChance:    0.03,
		WorldBound:    1000,
		CaptureRadius: 10,
		CollectRadius: 30,
		SpawnSpread:   800,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.MouseCount < 0 {
		return utils.NewConfigValidationError(path, errors.New("mouse_count must not be negative"))
	}
	if cfg.CheeseCount < 0 {
		return utils.NewConfigValidationError(path, errors.New("cheese_count must not be negative"))
	}
	if cfg.TurnChance < 0 || cfg.TurnChance > 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("turn_chance %v must be within [0, 1]", cfg.TurnChance))
	}
	if cfg.WorldBound <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "world_bound")
	}
	if cfg.Speed < 0 || cfg.CaptureRadius < 0 || cfg.CollectRadius < 0 || cfg.SpawnSpread < 0 || cfg.FleeRadius < 0 {
		return utils.NewConfigValidationError(path, errors.New("speeds and radii must not be negative"))
	}
	return nil
}

// Simulator owns the agents of one game session.
type Simulator struct {
	cfg       Config
	rng       *rand.Rand
	logger    logging.Logger
	agents    []Agent
	captures  int
	collected int
}

// NewSimulator spawns cfg.MouseCount mice followed by cfg.CheeseCount cheese at random ground
// positions within cfg.SpawnSpread of the origin, clamped to the world bound.
func NewSimulator(cfg Config, rng *rand.Rand, logger logging.Logger) *Simulator {
	sim := &Simulator{
		cfg:    cfg,
		rng:    rng,
		logger: logger,
		agents: make([]Agent, 0, cfg.MouseCount+cfg.CheeseCount),
	}
	for i := 0; i < cfg.MouseCount; i++ {
		sim.spawn(KindMouse)
	}
	for i := 0; i < cfg.CheeseCount; i++ {
		sim.spawn(KindCheese)
	}
	logger.Debugw("spawned agents", "mice", cfg.MouseCount, "cheese", cfg.CheeseCount)
	return sim
}

func (sim *Simulator) spawn(kind Kind) {
	spread := math.Min(sim.cfg.SpawnSpread, sim.cfg.WorldBound)
	agent := Agent{
		ID:   len(sim.agents),
		Kind: kind,
		Position: r3.Vector{
			X: (sim.rng.Float64()*2 - 1) * spread,
			Y: sim.cfg.GroundHeight,
			Z: (sim.rng.Float64()*2 - 1) * spread,
		},
		Alive: true,
	}
	if kind == KindMouse {
		agent.Direction = sim.randomDirection()
	}
	sim.agents = append(sim.agents, agent)
}

// randomDirection is a uniformly distributed horizontal unit vector.
func (sim *Simulator) randomDirection() r3.Vector {
	angle := sim.rng.Float64() * 2 * math.Pi
	return r3.Vector{X: math.Cos(angle), Z: math.Sin(angle)}
}

func (sim *Simulator) clamp(v float64) float64 {
	return rutils.Clamp(v, -sim.cfg.WorldBound, sim.cfg.WorldBound)
}

// Step advances every live mouse by one tick and returns the captures it caused. Mice turn with
// probability cfg.TurnChance, flee a viewer inside cfg.FleeRadius, move by cfg.Speed and stay
// within the world bound. A mouse that ends its move closer than cfg.CaptureRadius to the viewer
// is captured.
func (sim *Simulator) Step(viewer r3.Vector) []Event {
	var events []Event
	for i := range sim.agents {
		agent := &sim.agents[i]
		if agent.Kind != KindMouse || !agent.Alive {
			continue
		}

		if sim.rng.Float64() < sim.cfg.TurnChance {
			agent.Direction = sim.randomDirection()
		}
		if sim.cfg.FleeRadius > 0 && agent.Position.Sub(viewer).Norm() < sim.cfg.FleeRadius {
			away := r3.Vector{X: agent.Position.X - viewer.X, Z: agent.Position.Z - viewer.Z}
			if away.Norm() > 0 {
				agent.Direction = away.Normalize()
			}
		}

		agent.Position.X = sim.clamp(agent.Position.X + agent.Direction.X*sim.cfg.Speed)
		agent.Position.Z = sim.clamp(agent.Position.Z + agent.Direction.Z*sim.cfg.Speed)

		if agent.Position.Sub(viewer).Norm() < sim.cfg.CaptureRadius {
			agent.Alive = false
			sim.captures++
			sim.logger.Infow("mouse captured", "id", agent.ID, "captures", sim.captures)
			events = append(events, Event{Type: EventCapture, Agent: *agent})
		}
	}
	return events
}

// Collect picks up the first uncollected cheese, in creation order, within cfg.CollectRadius of
// the viewer. At most one cheese is collected per call.
func (sim *Simulator) Collect(viewer r3.Vector) (Agent, bool) {
	for i := range sim.agents {
		agent := &sim.agents[i]
		if agent.Kind != KindCheese || !agent.Alive {
			continue
		}
		if agent.Position.Sub(viewer).Norm() >= sim.cfg.CollectRadius {
			continue
		}
		agent.Alive = false
		sim.collected++
		sim.logger.Infow("cheese collected", "id", agent.ID, "collected", sim.collected, "total", sim.cfg.CheeseCount)
		return *agent, true
	}
	return Agent{}, false
}

// Captures returns the number of mice captured so far.
func (sim *Simulator) Captures() int {
	return sim.captures
}

// Collected returns the number of cheese collected so far.
func (sim *Simulator) Collected() int {
	return sim.collected
}

// Config returns the simulator's configuration.
func (sim *Simulator) Config() Config {
	return sim.cfg
}

// Agents returns a copy of every agent, live or not, in creation order.
func (sim *Simulator) Agents() []Agent {
	return append([]Agent(nil), sim.agents...)
}

// Active returns a copy of the live agents of the given kind.
func (sim *Simulator) Active(kind Kind) []Agent {
	return lo.Filter(sim.agents, func(a Agent, _ int) bool {
		return a.Alive && a.Kind == kind
	})
}

// Done reports whether every cheese has been collected.
func (sim *Simulator) Done() bool {
	return sim.collected >= sim.cfg.CheeseCount
}
