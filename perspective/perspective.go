// Package perspective defines the three first-person viewpoints (human, bird and mouse) and how
// a viewer moves, turns and follows the ground under each of them.
package perspective

import (
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/pointwalk/pointwalk/pointcloud"
)

// Kind is one of the supported viewpoints.
type Kind int

const (
	// Human is a standing adult.
	Human Kind = iota
	// Bird is a small bird in flight.
	Bird
	// Mouse is a mouse on the ground.
	Mouse
)

// Kinds lists every viewpoint in display order.
var Kinds = []Kind{Human, Bird, Mouse}

func (k Kind) String() string {
	switch k {
	case Human:
		return "human"
	case Bird:
		return "bird"
	case Mouse:
		return "mouse"
	default:
		return "unknown"
	}
}

// ParseKind parses a viewpoint name, ignoring case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "human":
		return Human, nil
	case "bird", "owl":
		return Bird, nil
	case "mouse":
		return Mouse, nil
	default:
		return Human, errors.Errorf("unknown perspective %q", s)
	}
}

// Toucher is the marker left on points this viewpoint reaches.
func (k Kind) Toucher() pointcloud.Toucher {
	switch k {
	case Human:
		return pointcloud.TouchedByHuman
	case Bird:
		return pointcloud.TouchedByOwl
	case Mouse:
		return pointcloud.TouchedByMouse
	default:
		return pointcloud.TouchedByNone
	}
}

// DefaultHeightScale converts eye levels in centimeters to scene units.
const DefaultHeightScale = 10.

// Config is the movement and interaction profile of a viewpoint.
type Config struct {
	// EyeLevel is in centimeters above the ground.
	EyeLevel    float64 `json:"eye_level"`
	MoveSpeed   float64 `json:"move_speed"`
	ScrollSpeed float64 `json:"scroll_speed"`
	RotateSpeed float64 `json:"rotate_speed"`
	FOV         float64 `json:"fov"`
	// TerrainFollow keeps the viewer TerrainOffset above the ground under it. Otherwise the viewer
	// stays at EyeLevel * WorldScale.
	TerrainFollow bool    `json:"terrain_follow"`
	TerrainOffset float64 `json:"terrain_offset"`
	SphereRadius  float64 `json:"sphere_radius"`
	WorldScale    float64 `json:"world_scale"`
	CursorSize    int     `json:"cursor_size"`
	Description   string  `json:"description"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.EyeLevel < 0 {
		return utils.NewConfigValidationError(path, errors.New("eye_level must not be negative"))
	}
	if cfg.MoveSpeed <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "move_speed")
	}
	if cfg.RotateSpeed <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "rotate_speed")
	}
	if cfg.WorldScale <= 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "world_scale")
	}
	if cfg.FOV <= 0 || cfg.FOV >= 180 {
		return utils.NewConfigValidationError(path, errors.Errorf("fov %v must be within (0, 180)", cfg.FOV))
	}
	if cfg.SphereRadius < 0 {
		return utils.NewConfigValidationError(path, errors.New("sphere_radius must not be negative"))
	}
	return nil
}

// EyeHeight is the eye level in scene units.
func (cfg Config) EyeHeight() float64 {
	return cfg.EyeLevel * cfg.WorldScale
}

// Table maps every viewpoint to its profile.
type Table map[Kind]Config

// DefaultTable returns the reference profiles.
func DefaultTable() Table {
	return Table{
		Human: {
			EyeLevel:      152.5,
			MoveSpeed:     2,
			ScrollSpeed:   2,
			RotateSpeed:   1,
			FOV:           75,
			TerrainFollow: true,
			TerrainOffset: 20,
			SphereRadius:  60,
			WorldScale:    DefaultHeightScale,
			CursorSize:    40,
			Description:   "Adult human standing eye level (152.5cm)",
		},
		Bird: {
			EyeLevel:    300,
			MoveSpeed:   4,
			ScrollSpeed: 4,
			RotateSpeed: 1.2,
			FOV:         75,
			// skims the survey above human height, low enough for its sphere to reach the ground
			TerrainFollow: true,
			TerrainOffset: 35,
			SphereRadius:  45,
			WorldScale:    DefaultHeightScale,
			CursorSize:    20,
			Description:   "Small bird flying eye level (~3m high)",
		},
		Mouse: {
			EyeLevel:      3.75,
			MoveSpeed:     1,
			ScrollSpeed:   1,
			RotateSpeed:   0.9,
			FOV:           75,
			TerrainFollow: true,
			TerrainOffset: 2,
			SphereRadius:  15,
			WorldScale:    DefaultHeightScale,
			CursorSize:    15,
			Description:   "Mouse eye level (3.75cm from ground)",
		},
	}
}

// Get returns the profile of a viewpoint, falling back to the default profile when the table has
// none.
func (t Table) Get(kind Kind) Config {
	if cfg, ok := t[kind]; ok {
		return cfg
	}
	return DefaultTable()[kind]
}

// Validate validates every profile in the table.
func (t Table) Validate(path string) error {
	for _, kind := range Kinds {
		cfg := t.Get(kind)
		if err := cfg.Validate(path + "." + kind.String()); err != nil {
			return err
		}
	}
	return nil
}
