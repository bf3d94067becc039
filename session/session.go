// Package session ties a loaded point cloud to the viewer walking through it. A Session lives from
// one dataset load to the next and runs the per frame pipeline: input, agents, terrain following
// and point displacement.
package session

import (
	"math/rand"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/pointwalk/pointwalk/agents"
	"github.com/pointwalk/pointwalk/displacement"
	"github.com/pointwalk/pointwalk/logging"
	"github.com/pointwalk/pointwalk/observations"
	"github.com/pointwalk/pointwalk/perspective"
	"github.com/pointwalk/pointwalk/pointcloud"
	"github.com/pointwalk/pointwalk/terrain"
)

// ErrNoDataset is returned by operations that need a loaded dataset when there is none.
var ErrNoDataset = errors.New("no dataset loaded")

const (
	// DefaultTerrainSearchRadius is how far from the viewer ground samples are looked for.
	DefaultTerrainSearchRadius = 50.
	// DefaultCameraBackoff is how far behind the first linked point a new viewer starts.
	DefaultCameraBackoff = 300.
)

// Options configures every session a Manager creates.
type Options struct {
	Normalize    pointcloud.NormalizeOptions
	Perspectives perspective.Table
	Initial      perspective.Kind
	Game         agents.Config

	TerrainIndex        terrain.Kind
	TerrainSearchRadius float64
	// FallbackGround is the ground height used where no sample is within the search radius.
	FallbackGround float64

	Records       []observations.Record
	MinLinks      int
	MaxLinks      int
	PickThreshold float64
	CameraBackoff float64

	// Seed makes sessions reproducible. Zero seeds from the time.
	Seed int64
}

// DefaultOptions returns the reference session options.
func DefaultOptions() Options {
	return Options{
		Normalize: pointcloud.NormalizeOptions{
			WorldSize:        pointcloud.DefaultWorldSize,
			MaxHeightPercent: pointcloud.DefaultMaxHeightPercent,
		},
		Perspectives:        perspective.DefaultTable(),
		Initial:             perspective.Human,
		Game:                agents.DefaultConfig(),
		TerrainIndex:        terrain.KindLinear,
		TerrainSearchRadius: DefaultTerrainSearchRadius,
		Records:             observations.DefaultRecords(),
		MinLinks:            observations.DefaultMinLinks,
		MaxLinks:            observations.DefaultMaxLinks,
		PickThreshold:       observations.DefaultPickThreshold,
		CameraBackoff:       DefaultCameraBackoff,
	}
}

// FrameResult is what a single frame produced.
type FrameResult struct {
	Frame        int
	Events       []agents.Event
	Displacement displacement.Stats
	Ground       float64
	OnTerrain    bool
	Captures     int
	Collected    int
}

// Counters is the game progress shown to the user.
type Counters struct {
	Frames      int
	Captures    int
	Collected   int
	CheeseTotal int
	Touched     map[pointcloud.Toucher]int
}

// Session is the state of one loaded dataset.
type Session struct {
	id      uuid.UUID
	dataset string

	opts   Options
	store  *pointcloud.Store
	index  terrain.Index
	viewer perspective.Viewer
	sim    *agents.Simulator
	links  observations.Links
	rng    *rand.Rand
	logger logging.Logger

	frames int
}

// New builds a session over the raw points of a dataset.
func New(name string, raw []r3.Vector, opts Options, logger logging.Logger) (*Session, error) {
	if opts.Perspectives == nil {
		opts.Perspectives = perspective.DefaultTable()
	}
	if opts.TerrainSearchRadius <= 0 {
		opts.TerrainSearchRadius = DefaultTerrainSearchRadius
	}
	if opts.PickThreshold <= 0 {
		opts.PickThreshold = observations.DefaultPickThreshold
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	normalize := opts.Normalize
	normalize.Source = name
	store := pointcloud.Normalize(raw, normalize)
	index, err := terrain.NewIndex(store, opts.TerrainIndex)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:      uuid.New(),
		dataset: name,
		opts:    opts,
		store:   store,
		index:   index,
		rng:     rng,
		logger:  logger,
	}
	s.links = observations.LinkRandom(store, opts.Records, rng, opts.MinLinks, opts.MaxLinks)
	s.sim = agents.NewSimulator(opts.Game, rng, logger.Sublogger("agents"))
	s.placeViewer()

	logger.Infow("session created",
		"id", s.id.String(),
		"dataset", name,
		"points", store.Len(),
		"links", len(s.links),
		"perspective", opts.Initial.String())
	if nan := store.RawMetaData().NaNCount; nan > 0 {
		logger.Warnw("dataset has rows with unparsable values", "dataset", name, "rows", nan)
	}
	return s, nil
}

// ID returns the id of this session.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Dataset returns the name of the dataset the session was built from.
func (s *Session) Dataset() string {
	return s.dataset
}

// placeViewer starts the viewer behind the first linked point, looking toward -Z, at the height
// its profile gives it there.
func (s *Session) placeViewer() {
	s.viewer = perspective.Viewer{Kind: s.opts.Initial}
	if len(s.links) > 0 {
		first := s.links[0].Position
		s.viewer.Position.X = first.X
		s.viewer.Position.Z = first.Z + s.opts.CameraBackoff
	}
	s.settle(s.opts.Perspectives.Get(s.viewer.Kind))
}

// settle puts the viewer at the height cfg gives it at its current spot. Placement, perspective
// switches and every frame share it.
func (s *Session) settle(cfg perspective.Config) (float64, bool) {
	return s.viewer.FollowTerrain(s.index, cfg, s.opts.TerrainSearchRadius, s.opts.FallbackGround)
}

// Store returns the session's point store.
func (s *Session) Store() *pointcloud.Store {
	if s == nil {
		return nil
	}
	return s.store
}

// Viewer returns a copy of the viewer.
func (s *Session) Viewer() perspective.Viewer {
	if s == nil {
		return perspective.Viewer{}
	}
	return s.viewer
}

// Links returns the observation links of the session.
func (s *Session) Links() observations.Links {
	if s == nil {
		return nil
	}
	return s.links
}

// Agents returns a copy of every game agent.
func (s *Session) Agents() []agents.Agent {
	if s == nil {
		return nil
	}
	return s.sim.Agents()
}

// Perspective returns the active viewpoint and its profile.
func (s *Session) Perspective() (perspective.Kind, perspective.Config) {
	if s == nil {
		return perspective.Human, perspective.DefaultTable().Get(perspective.Human)
	}
	return s.viewer.Kind, s.opts.Perspectives.Get(s.viewer.Kind)
}

// SetPerspective switches the viewpoint. The viewer keeps its horizontal position and moves to the
// new profile's height right away.
func (s *Session) SetPerspective(kind perspective.Kind) {
	if s == nil || kind == s.viewer.Kind {
		return
	}
	cfg := s.opts.Perspectives.Get(kind)
	s.viewer.Kind = kind
	s.settle(cfg)
	s.logger.Infow("perspective switched",
		"perspective", kind.String(),
		"height", s.viewer.Position.Y,
		"description", cfg.Description)
}

// agentViewer is the viewer's footprint on the ground plane the agents live on.
func (s *Session) agentViewer() r3.Vector {
	return r3.Vector{X: s.viewer.Position.X, Y: s.opts.Game.GroundHeight, Z: s.viewer.Position.Z}
}

// Frame runs one frame: the viewer takes the input, agents step, the viewer follows the terrain
// and points around the viewer are displaced. Without a session or without points it does
// nothing.
func (s *Session) Frame(in perspective.Input) FrameResult {
	if s == nil || s.store.Len() == 0 {
		return FrameResult{}
	}
	kind, cfg := s.Perspective()

	s.viewer.Apply(in, cfg)
	events := s.sim.Step(s.agentViewer())
	ground, onTerrain := s.settle(cfg)
	stats := displacement.Update(s.store, s.viewer.Position, cfg.SphereRadius, kind.Toucher())

	s.frames++
	if stats.NewlyTouched > 0 {
		s.logger.Debugw("points touched", "frame", s.frames, "count", stats.NewlyTouched, "by", kind.Toucher().String())
	}
	return FrameResult{
		Frame:        s.frames,
		Events:       events,
		Displacement: stats,
		Ground:       ground,
		OnTerrain:    onTerrain,
		Captures:     s.sim.Captures(),
		Collected:    s.sim.Collected(),
	}
}

// Collect tries to pick up a cheese near the viewer.
func (s *Session) Collect() (agents.Agent, bool) {
	if s == nil {
		return agents.Agent{}, false
	}
	agent, ok := s.sim.Collect(s.agentViewer())
	if ok && s.sim.Done() {
		s.logger.Infow("all cheese collected", "frames", s.frames)
	}
	return agent, ok
}

// Hover returns the link of the point under a ray, if that point is linked.
func (s *Session) Hover(origin, dir r3.Vector) (observations.Link, bool) {
	if s == nil {
		return observations.Link{}, false
	}
	index, ok := observations.PickPoint(s.store, origin, dir, s.opts.PickThreshold)
	if !ok {
		return observations.Link{}, false
	}
	return s.links.At(index)
}

// Click returns the link a ray selects. Linked points are preferred over whatever point the ray
// hits first.
func (s *Session) Click(origin, dir r3.Vector) (observations.Link, bool) {
	if s == nil {
		return observations.Link{}, false
	}
	if link, ok := s.links.Pick(s.store, origin, dir, s.opts.PickThreshold); ok {
		s.logger.Infow("opening observation", "species", link.Record.Species, "url", link.Record.URL)
		return link, true
	}
	link, ok := s.Hover(origin, dir)
	if ok {
		s.logger.Infow("opening observation", "species", link.Record.Species, "url", link.Record.URL)
	}
	return link, ok
}

// Look is Hover along the viewer's line of sight.
func (s *Session) Look() (observations.Link, bool) {
	if s == nil {
		return observations.Link{}, false
	}
	return s.Hover(s.viewer.Position, s.viewer.Forward())
}

// Counters returns the game progress.
func (s *Session) Counters() Counters {
	if s == nil {
		return Counters{Touched: map[pointcloud.Toucher]int{}}
	}
	return Counters{
		Frames:      s.frames,
		Captures:    s.sim.Captures(),
		Collected:   s.sim.Collected(),
		CheeseTotal: s.sim.Config().CheeseCount,
		Touched:     s.store.TouchedCounts(),
	}
}
