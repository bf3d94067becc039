package perspective

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/pointwalk/pointwalk/terrain"
	"github.com/pointwalk/pointwalk/utils"
)

const (
	// RadiansPerPixel is the turn per pixel of pointer movement at a rotate speed of 1.
	RadiansPerPixel = 0.002
	// MaxPitch keeps the viewer from looking straight up or down.
	MaxPitch = 85 * math.Pi / 180
	// ZoomFactor scales the scroll speed for the zoom keys.
	ZoomFactor = 1.5
)

var up = r3.Vector{Y: 1}

// Input is the user input gathered for one frame.
type Input struct {
	Forward  bool
	Backward bool
	Left     bool
	Right    bool
	ZoomIn   bool
	ZoomOut  bool
	// Scroll is the wheel delta; only its sign matters.
	Scroll  float64
	MouseDX float64
	MouseDY float64
}

// Viewer is the first-person camera. A yaw of zero looks down -Z.
type Viewer struct {
	Position r3.Vector
	Yaw      float64
	Pitch    float64
	Kind     Kind
}

// Forward is the direction the viewer looks in, pitch included.
func (v *Viewer) Forward() r3.Vector {
	cp := math.Cos(v.Pitch)
	return r3.Vector{
		X: -math.Sin(v.Yaw) * cp,
		Y: math.Sin(v.Pitch),
		Z: -math.Cos(v.Yaw) * cp,
	}
}

// HorizontalForward is the forward direction flattened onto the ground plane.
func (v *Viewer) HorizontalForward() r3.Vector {
	return r3.Vector{X: -math.Sin(v.Yaw), Z: -math.Cos(v.Yaw)}
}

// Right is the horizontal direction to the viewer's right.
func (v *Viewer) Right() r3.Vector {
	return v.HorizontalForward().Cross(up).Normalize()
}

// Apply turns and moves the viewer by one frame of input. Movement is always horizontal.
func (v *Viewer) Apply(in Input, cfg Config) {
	turn := cfg.RotateSpeed * RadiansPerPixel
	v.Yaw -= in.MouseDX * turn
	v.Pitch = utils.Clamp(v.Pitch-in.MouseDY*turn, -MaxPitch, MaxPitch)

	forward := v.HorizontalForward()
	right := v.Right()
	var step r3.Vector
	if in.Forward {
		step = step.Add(forward.Mul(cfg.MoveSpeed))
	}
	if in.Backward {
		step = step.Sub(forward.Mul(cfg.MoveSpeed))
	}
	if in.Right {
		step = step.Add(right.Mul(cfg.MoveSpeed))
	}
	if in.Left {
		step = step.Sub(right.Mul(cfg.MoveSpeed))
	}

	zoom := cfg.ScrollSpeed * ZoomFactor
	if in.ZoomIn {
		step = step.Add(forward.Mul(zoom))
	}
	if in.ZoomOut {
		step = step.Sub(forward.Mul(zoom))
	}
	switch {
	case in.Scroll > 0:
		step = step.Add(forward.Mul(cfg.ScrollSpeed))
	case in.Scroll < 0:
		step = step.Sub(forward.Mul(cfg.ScrollSpeed))
	}
	v.Position = v.Position.Add(step)
}

// FollowTerrain sets the viewer's height for this frame. A terrain following profile stands
// TerrainOffset above the ground found within searchRadius, or above fallbackGround when the
// index has nothing nearby. Any other profile holds its eye height. It returns the ground height
// used and whether the index found it.
func (v *Viewer) FollowTerrain(index terrain.Index, cfg Config, searchRadius, fallbackGround float64) (float64, bool) {
	if !cfg.TerrainFollow {
		v.Position.Y = cfg.EyeHeight()
		return fallbackGround, false
	}
	ground, ok := fallbackGround, false
	if index != nil {
		if h, found := index.HeightAt(v.Position.X, v.Position.Z, searchRadius); found {
			ground, ok = h, true
		}
	}
	v.Position.Y = ground + cfg.TerrainOffset
	return ground, ok
}
