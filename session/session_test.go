package session

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/pointwalk/pointwalk/agents"
	"github.com/pointwalk/pointwalk/dataset"
	"github.com/pointwalk/pointwalk/logging"
	"github.com/pointwalk/pointwalk/perspective"
	"github.com/pointwalk/pointwalk/pointcloud"
)

// grid is an 11x11 survey with one unit spacing and a gentle slope along x. Normalized, samples
// are 200 scene units apart.
func grid() []r3.Vector {
	var points []r3.Vector
	for i := 0; i <= 10; i++ {
		for j := 0; j <= 10; j++ {
			points = append(points, r3.Vector{X: float64(i), Y: float64(j), Z: float64(i) * 0.1})
		}
	}
	return points
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Seed = 42
	return opts
}

func newTestSession(t *testing.T, opts Options) *Session {
	t.Helper()
	sess, err := New("grid", grid(), opts, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return sess
}

func TestNew(t *testing.T) {
	sess := newTestSession(t, testOptions())
	test.That(t, sess.ID(), test.ShouldNotEqual, uuid.Nil)
	test.That(t, sess.Dataset(), test.ShouldEqual, "grid")
	test.That(t, sess.Store().Len(), test.ShouldEqual, 121)
	test.That(t, sess.Store().Scale(), test.ShouldEqual, 200)

	links := sess.Links()
	test.That(t, len(links), test.ShouldBeBetweenOrEqual, 15, 25)

	viewer := sess.Viewer()
	test.That(t, viewer.Kind, test.ShouldEqual, perspective.Human)
	test.That(t, viewer.Position.X, test.ShouldEqual, links[0].Position.X)
	test.That(t, viewer.Position.Z, test.ShouldEqual, links[0].Position.Z+DefaultCameraBackoff)
	// placed with the same height rule frames use
	human := sess.opts.Perspectives.Get(perspective.Human)
	test.That(t, viewer.Position.Y, test.ShouldEqual, groundAt(sess, viewer.Position)+human.TerrainOffset)

	other := newTestSession(t, testOptions())
	test.That(t, other.ID(), test.ShouldNotEqual, sess.ID())
	// the same seed links the same points
	test.That(t, other.Links(), test.ShouldResemble, links)

	opts := testOptions()
	opts.TerrainIndex = "octree"
	_, err := New("grid", grid(), opts, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

// groundAt is the ground height a terrain following viewer at p stands on.
func groundAt(sess *Session, p r3.Vector) float64 {
	if h, ok := sess.index.HeightAt(p.X, p.Z, sess.opts.TerrainSearchRadius); ok {
		return h
	}
	return sess.opts.FallbackGround
}

func TestNilSession(t *testing.T) {
	var sess *Session
	test.That(t, sess.Frame(perspective.Input{Forward: true}), test.ShouldResemble, FrameResult{})
	_, ok := sess.Collect()
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = sess.Click(r3.Vector{}, r3.Vector{Z: -1})
	test.That(t, ok, test.ShouldBeFalse)
	sess.SetPerspective(perspective.Mouse)
	test.That(t, sess.Store(), test.ShouldBeNil)
	test.That(t, sess.Counters().Frames, test.ShouldEqual, 0)
}

func TestFrameEmptyDataset(t *testing.T) {
	sess, err := New("empty", nil, testOptions(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	before := sess.Viewer()
	test.That(t, sess.Frame(perspective.Input{Forward: true}), test.ShouldResemble, FrameResult{})
	test.That(t, sess.Viewer(), test.ShouldResemble, before)
	test.That(t, sess.Counters().Frames, test.ShouldEqual, 0)
}

func TestFrame(t *testing.T) {
	opts := testOptions()
	opts.Game.MouseCount = 0
	sess := newTestSession(t, opts)

	// stand right on a sample: x = 0, z = 0 in the scene has raw height 0.5
	sess.viewer.Position = r3.Vector{X: 0, Y: 0, Z: 0}
	result := sess.Frame(perspective.Input{})
	test.That(t, result.Frame, test.ShouldEqual, 1)
	test.That(t, result.OnTerrain, test.ShouldBeTrue)
	test.That(t, result.Ground, test.ShouldAlmostEqual, 100)

	human := sess.opts.Perspectives.Get(perspective.Human)
	test.That(t, sess.Viewer().Position.Y, test.ShouldAlmostEqual, 100+human.TerrainOffset)
	test.That(t, result.Displacement.Displaced, test.ShouldEqual, 1)
	test.That(t, result.Displacement.NewlyTouched, test.ShouldEqual, 1)
	test.That(t, sess.Counters().Touched[pointcloud.TouchedByHuman], test.ShouldEqual, 1)

	// walking one step keeps the same point inside the sphere
	result = sess.Frame(perspective.Input{Forward: true})
	test.That(t, result.Frame, test.ShouldEqual, 2)
	test.That(t, result.Displacement.NewlyTouched, test.ShouldEqual, 0)
	test.That(t, sess.Viewer().Position.Z, test.ShouldAlmostEqual, -human.MoveSpeed)

	// far from any sample: fall back to the configured ground and release the point
	sess.viewer.Position = r3.Vector{X: 100, Z: 100}
	result = sess.Frame(perspective.Input{})
	test.That(t, result.OnTerrain, test.ShouldBeFalse)
	test.That(t, result.Ground, test.ShouldEqual, opts.FallbackGround)
	test.That(t, result.Displacement.Displaced, test.ShouldEqual, 0)
	counters := sess.Counters()
	test.That(t, counters.Frames, test.ShouldEqual, 3)
	test.That(t, counters.Touched[pointcloud.TouchedByHuman], test.ShouldEqual, 1)
	sess.Store().Iterate(func(_ int, p *pointcloud.Point) bool {
		test.That(t, p.Position, test.ShouldResemble, p.Original)
		return true
	})
}

func TestSetPerspective(t *testing.T) {
	opts := testOptions()
	opts.Game.MouseCount = 0
	sess := newTestSession(t, opts)

	sess.viewer.Position = r3.Vector{X: 0, Y: 9999, Z: 0}
	sess.SetPerspective(perspective.Bird)
	kind, cfg := sess.Perspective()
	test.That(t, kind, test.ShouldEqual, perspective.Bird)
	// the switch lands on the height the next frame keeps
	test.That(t, sess.Viewer().Position.Y, test.ShouldAlmostEqual, 100+cfg.TerrainOffset)
	result := sess.Frame(perspective.Input{})
	test.That(t, sess.Viewer().Position.Y, test.ShouldAlmostEqual, 100+cfg.TerrainOffset)
	test.That(t, result.Displacement.NewlyTouched, test.ShouldEqual, 1)
	test.That(t, sess.Counters().Touched[pointcloud.TouchedByOwl], test.ShouldEqual, 1)

	sess.SetPerspective(perspective.Mouse)
	sess.viewer.Position = r3.Vector{X: 200, Z: 0}
	result = sess.Frame(perspective.Input{})
	test.That(t, result.OnTerrain, test.ShouldBeTrue)
	test.That(t, result.Displacement.NewlyTouched, test.ShouldEqual, 1)
	test.That(t, sess.Counters().Touched[pointcloud.TouchedByMouse], test.ShouldEqual, 1)
}

// flatSurvey is a 51x51 flat survey. Normalized, samples are 40 scene units apart on the ground.
func flatSurvey() []r3.Vector {
	var points []r3.Vector
	for i := 0; i <= 50; i++ {
		for j := 0; j <= 50; j++ {
			points = append(points, r3.Vector{X: float64(i), Y: float64(j)})
		}
	}
	return points
}

func TestEveryPerspectiveTouches(t *testing.T) {
	for _, kind := range perspective.Kinds {
		t.Run(kind.String(), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Seed = 7
			opts.Initial = kind
			sess, err := New("flat", flatSurvey(), opts, logging.NewTestLogger(t))
			test.That(t, err, test.ShouldBeNil)

			for i := 0; i < 600; i++ {
				sess.Frame(perspective.Input{Forward: true})
			}
			_, cfg := sess.Perspective()
			test.That(t, sess.Viewer().Position.Y, test.ShouldBeLessThan, cfg.SphereRadius)
			test.That(t, sess.Counters().Touched[kind.Toucher()], test.ShouldBeGreaterThan, 0)
		})
	}
}

func TestCollectAndCapture(t *testing.T) {
	opts := testOptions()
	opts.Game.SpawnSpread = 0
	opts.Game.Speed = 0
	opts.Game.MouseCount = 3
	sess := newTestSession(t, opts)

	// every agent spawned at the origin; the viewer's footprint is what counts
	sess.viewer.Position = r3.Vector{X: 1, Y: 500, Z: 1}
	for i := 0; i < opts.Game.CheeseCount; i++ {
		agent, ok := sess.Collect()
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, agent.Kind, test.ShouldEqual, agents.KindCheese)
	}
	_, ok := sess.Collect()
	test.That(t, ok, test.ShouldBeFalse)

	result := sess.Frame(perspective.Input{})
	test.That(t, result.Events, test.ShouldHaveLength, 3)
	test.That(t, result.Captures, test.ShouldEqual, 3)
	test.That(t, result.Collected, test.ShouldEqual, opts.Game.CheeseCount)

	result = sess.Frame(perspective.Input{})
	test.That(t, result.Events, test.ShouldBeEmpty)
	counters := sess.Counters()
	test.That(t, counters.Captures, test.ShouldEqual, 3)
	test.That(t, counters.Collected, test.ShouldEqual, counters.CheeseTotal)
	for _, agent := range sess.Agents() {
		test.That(t, agent.Alive, test.ShouldBeFalse)
	}
}

func TestHoverAndClick(t *testing.T) {
	sess := newTestSession(t, testOptions())
	link := sess.Links()[0]

	above := link.Position.Add(r3.Vector{Y: 5000})
	hovered, ok := sess.Hover(above, r3.Vector{Y: -1})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, hovered, test.ShouldResemble, link)

	clicked, ok := sess.Click(above, r3.Vector{Y: -1})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, clicked.Record, test.ShouldResemble, link.Record)

	_, ok = sess.Click(r3.Vector{X: 5000, Y: 5000}, r3.Vector{Y: 1})
	test.That(t, ok, test.ShouldBeFalse)

	sess.viewer.Position = above
	sess.viewer.Pitch = -perspective.MaxPitch
	_, ok = sess.Look()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestManager(t *testing.T) {
	logger, observed := logging.NewObservedTestLogger(t)
	loader := dataset.StaticLoader{"grid": grid(), "line": {{X: 0}, {X: 10}}}
	manager := NewManager(loader, testOptions(), logger)

	test.That(t, manager.Current(), test.ShouldBeNil)
	_, err := manager.MustCurrent()
	test.That(t, errors.Is(err, ErrNoDataset), test.ShouldBeTrue)

	test.That(t, manager.Load(context.Background(), "grid"), test.ShouldBeNil)
	first := manager.Current()
	test.That(t, first, test.ShouldNotBeNil)
	test.That(t, first.Dataset(), test.ShouldEqual, "grid")
	first.Frame(perspective.Input{})

	// a failed load keeps the previous session untouched
	err = manager.Load(context.Background(), "missing")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, manager.Current(), test.ShouldEqual, first)
	test.That(t, first.Counters().Frames, test.ShouldEqual, 1)
	test.That(t, observed.FilterMessage("failed to load dataset").Len(), test.ShouldEqual, 1)

	test.That(t, manager.Load(context.Background(), "line"), test.ShouldBeNil)
	second, err := manager.MustCurrent()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, second.ID(), test.ShouldNotEqual, first.ID())
	test.That(t, second.Store().Len(), test.ShouldEqual, 2)
	test.That(t, second.Counters().Frames, test.ShouldEqual, 0)
	test.That(t, observed.FilterMessage("dataset switched").Len(), test.ShouldEqual, 1)
}

func TestLoop(t *testing.T) {
	mock := clock.NewMock()
	frames := make(chan struct{}, 100)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Loop(ctx, mock, 30, func() { frames <- struct{}{} })
	}()

	interval := time.Second / 30
	for i := 0; i < 3; i++ {
		received := false
		for !received {
			mock.Add(interval)
			select {
			case <-frames:
				received = true
			case <-time.After(10 * time.Millisecond):
			}
		}
	}

	cancel()
	select {
	case err := <-done:
		test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
	}

	test.That(t, Loop(context.Background(), mock, 0, func() {}), test.ShouldNotBeNil)
}
