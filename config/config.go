// Package config defines the structures to configure pointwalk and the reader that loads them.
package config

import (
	"fmt"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/pointwalk/pointwalk/agents"
	"github.com/pointwalk/pointwalk/dataset"
	"github.com/pointwalk/pointwalk/logging"
	"github.com/pointwalk/pointwalk/observations"
	"github.com/pointwalk/pointwalk/perspective"
	"github.com/pointwalk/pointwalk/pointcloud"
	"github.com/pointwalk/pointwalk/session"
	"github.com/pointwalk/pointwalk/terrain"
)

// Config describes the datasets pointwalk can load and how a session over them behaves.
type Config struct {
	ConfigFilePath string `json:"-"`

	// DataDir is where dataset files are looked up. Relative dataset paths are joined to it.
	DataDir        string          `json:"data_dir,omitempty"`
	Datasets       []DatasetConfig `json:"datasets"`
	InitialDataset string          `json:"initial_dataset,omitempty"`
	Perspective    string          `json:"perspective,omitempty"`

	Scene        SceneConfig        `json:"scene"`
	Game         agents.Config      `json:"game"`
	Observations ObservationsConfig `json:"observations"`

	// Perspectives holds per viewpoint overrides keyed by viewpoint name, e.g.
	// {"mouse": {"move_speed": 1.5}}.
	Perspectives map[string]AttributeMap `json:"perspectives,omitempty"`

	LogLevel string                        `json:"log_level,omitempty"`
	Log      []logging.LoggerPatternConfig `json:"log,omitempty"`
	// LogFile additionally writes logs to a file rotated every LogFileMaxSizeMB megabytes. A relative
	// path is resolved against DataDir.
	LogFile          string `json:"log_file,omitempty"`
	LogFileMaxSizeMB int    `json:"log_file_max_size_mb,omitempty"`
}

// DefaultLogFileMaxSizeMB is the size at which log files are rotated.
const DefaultLogFileMaxSizeMB = 100

// DatasetConfig names a point cloud file.
type DatasetConfig struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Validate ensures all parts of the config are valid.
func (conf *DatasetConfig) Validate(path string) error {
	if conf.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if conf.Path == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "path")
	}
	return nil
}

// SceneConfig configures normalization and terrain following.
type SceneConfig struct {
	WorldSize           float64 `json:"world_size,omitempty"`
	MaxHeightPercent    float64 `json:"max_height_percent,omitempty"`
	TerrainIndex        string  `json:"terrain_index,omitempty"`
	TerrainSearchRadius float64 `json:"terrain_search_radius,omitempty"`
	FallbackGround      float64 `json:"fallback_ground,omitempty"`
	CameraBackoff       float64 `json:"camera_backoff,omitempty"`
	Seed                int64   `json:"seed,omitempty"`
	FPS                 int     `json:"fps,omitempty"`
}

// DefaultFPS is the frame rate of the simulation loop.
const DefaultFPS = 60

// Validate ensures all parts of the config are valid.
func (conf *SceneConfig) Validate(path string) error {
	if conf.WorldSize < 0 {
		return utils.NewConfigValidationError(path, errors.New("world_size must not be negative"))
	}
	if conf.MaxHeightPercent < 0 || conf.MaxHeightPercent > 100 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("max_height_percent %v must be within [0, 100]", conf.MaxHeightPercent))
	}
	switch terrain.Kind(conf.TerrainIndex) {
	case "", terrain.KindLinear, terrain.KindKDTree:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown terrain_index %q", conf.TerrainIndex))
	}
	if conf.TerrainSearchRadius < 0 {
		return utils.NewConfigValidationError(path, errors.New("terrain_search_radius must not be negative"))
	}
	if conf.FPS < 0 {
		return utils.NewConfigValidationError(path, errors.New("fps must not be negative"))
	}
	return nil
}

// ObservationsConfig configures which points link to observation records.
type ObservationsConfig struct {
	MinLinks      int                   `json:"min_links,omitempty"`
	MaxLinks      int                   `json:"max_links,omitempty"`
	PickThreshold float64               `json:"pick_threshold,omitempty"`
	Records       []observations.Record `json:"records,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *ObservationsConfig) Validate(path string) error {
	if conf.MinLinks < 0 || conf.MaxLinks < 0 {
		return utils.NewConfigValidationError(path, errors.New("link counts must not be negative"))
	}
	if conf.MaxLinks < conf.MinLinks {
		return utils.NewConfigValidationError(path,
			errors.Errorf("max_links %d is less than min_links %d", conf.MaxLinks, conf.MinLinks))
	}
	for idx, record := range conf.Records {
		if record.URL == "" {
			return utils.NewConfigValidationFieldRequiredError(fmt.Sprintf("%s.records.%d", path, idx), "url")
		}
	}
	return nil
}

// AttributeMap is a loosely typed set of fields decoded onto a typed config later.
type AttributeMap map[string]interface{}

// decodeAttributes decodes attributes onto result and returns the keys nothing consumed.
func decodeAttributes(attributes AttributeMap, result interface{}) ([]string, error) {
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: result, Metadata: &md})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, err
	}
	sort.Strings(md.Unused)
	return md.Unused, nil
}

// ensureDefaults fills every unset field with its reference value.
func (c *Config) ensureDefaults() {
	if c.Scene.WorldSize == 0 {
		c.Scene.WorldSize = pointcloud.DefaultWorldSize
	}
	if c.Scene.MaxHeightPercent == 0 {
		c.Scene.MaxHeightPercent = pointcloud.DefaultMaxHeightPercent
	}
	if c.Scene.TerrainIndex == "" {
		c.Scene.TerrainIndex = string(terrain.KindLinear)
	}
	if c.Scene.TerrainSearchRadius == 0 {
		c.Scene.TerrainSearchRadius = session.DefaultTerrainSearchRadius
	}
	if c.Scene.CameraBackoff == 0 {
		c.Scene.CameraBackoff = session.DefaultCameraBackoff
	}
	if c.Scene.FPS == 0 {
		c.Scene.FPS = DefaultFPS
	}

	// files are decoded over agents.DefaultConfig, so zeros in Game are meant. Only a config
	// built without any game settings gets the defaults here.
	if c.Game == (agents.Config{}) {
		c.Game = agents.DefaultConfig()
	}
	if c.Game.WorldBound == 0 {
		c.Game.WorldBound = agents.DefaultConfig().WorldBound
	}

	if c.Observations.MinLinks == 0 && c.Observations.MaxLinks == 0 {
		c.Observations.MinLinks = observations.DefaultMinLinks
		c.Observations.MaxLinks = observations.DefaultMaxLinks
	}
	if c.Observations.PickThreshold == 0 {
		c.Observations.PickThreshold = observations.DefaultPickThreshold
	}
	if len(c.Observations.Records) == 0 {
		c.Observations.Records = observations.DefaultRecords()
	}

	if c.Perspective == "" {
		c.Perspective = perspective.Human.String()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFileMaxSizeMB == 0 {
		c.LogFileMaxSizeMB = DefaultLogFileMaxSizeMB
	}
	if c.InitialDataset == "" && len(c.Datasets) > 0 {
		c.InitialDataset = c.Datasets[0].Name
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	seen := map[string]struct{}{}
	for idx := range c.Datasets {
		if err := c.Datasets[idx].Validate(fmt.Sprintf("%s.%d", "datasets", idx)); err != nil {
			return err
		}
		name := c.Datasets[idx].Name
		if _, ok := seen[name]; ok {
			return utils.NewConfigValidationError(fmt.Sprintf("%s.%d", "datasets", idx),
				errors.Errorf("duplicate dataset name %q", name))
		}
		seen[name] = struct{}{}
	}
	if c.InitialDataset != "" {
		if _, ok := seen[c.InitialDataset]; !ok {
			return utils.NewConfigValidationError("initial_dataset",
				errors.Errorf("dataset %q is not configured", c.InitialDataset))
		}
	}
	if _, err := perspective.ParseKind(c.Perspective); err != nil {
		return utils.NewConfigValidationError("perspective", err)
	}
	if err := c.Scene.Validate("scene"); err != nil {
		return err
	}
	if err := c.Game.Validate("game"); err != nil {
		return err
	}
	if err := c.Observations.Validate("observations"); err != nil {
		return err
	}
	if _, err := c.PerspectiveTable(); err != nil {
		return err
	}
	if _, err := logging.LevelFromString(c.LogLevel); err != nil {
		return utils.NewConfigValidationError("log_level", err)
	}
	if c.LogFileMaxSizeMB < 0 {
		return utils.NewConfigValidationError("log_file_max_size_mb", errors.New("must not be negative"))
	}
	for idx, pattern := range c.Log {
		path := fmt.Sprintf("%s.%d", "log", idx)
		if !logging.ValidatePattern(pattern.Pattern) {
			return utils.NewConfigValidationError(path, errors.Errorf("invalid logger pattern %q", pattern.Pattern))
		}
		if _, err := logging.LevelFromString(pattern.Level); err != nil {
			return utils.NewConfigValidationError(path, err)
		}
	}
	return nil
}

// PerspectiveTable applies the configured overrides to the default viewpoint profiles.
func (c *Config) PerspectiveTable() (perspective.Table, error) {
	table := perspective.DefaultTable()
	for name, attributes := range c.Perspectives {
		path := "perspectives." + name
		kind, err := perspective.ParseKind(name)
		if err != nil {
			return nil, utils.NewConfigValidationError(path, err)
		}
		cfg := table.Get(kind)
		unused, err := decodeAttributes(attributes, &cfg)
		if err != nil {
			return nil, utils.NewConfigValidationError(path, err)
		}
		if len(unused) > 0 {
			return nil, utils.NewConfigValidationError(path, errors.Errorf("unknown attributes %v", unused))
		}
		table[kind] = cfg
	}
	if err := table.Validate("perspectives"); err != nil {
		return nil, err
	}
	return table, nil
}

// Dataset returns the configured dataset with the given name.
func (c *Config) Dataset(name string) (DatasetConfig, bool) {
	for _, ds := range c.Datasets {
		if ds.Name == name {
			return ds, true
		}
	}
	return DatasetConfig{}, false
}

// Loader returns a loader resolving dataset names to their configured files under DataDir.
func (c *Config) Loader(logger logging.Logger) *dataset.CatalogLoader {
	files := make(map[string]string, len(c.Datasets))
	for _, ds := range c.Datasets {
		files[ds.Name] = ds.Path
	}
	return &dataset.CatalogLoader{Files: files, FileLoader: dataset.FileLoader{Dir: c.DataDir, Logger: logger}}
}

// Level returns the configured default log level.
func (c *Config) Level() logging.Level {
	level, err := logging.LevelFromString(c.LogLevel)
	if err != nil {
		return logging.INFO
	}
	return level
}

// SessionOptions converts the config to the options every session is built with.
func (c *Config) SessionOptions() (session.Options, error) {
	table, err := c.PerspectiveTable()
	if err != nil {
		return session.Options{}, err
	}
	initial, err := perspective.ParseKind(c.Perspective)
	if err != nil {
		return session.Options{}, err
	}
	return session.Options{
		Normalize: pointcloud.NormalizeOptions{
			WorldSize:        c.Scene.WorldSize,
			MaxHeightPercent: c.Scene.MaxHeightPercent,
		},
		Perspectives:        table,
		Initial:             initial,
		Game:                c.Game,
		TerrainIndex:        terrain.Kind(c.Scene.TerrainIndex),
		TerrainSearchRadius: c.Scene.TerrainSearchRadius,
		FallbackGround:      c.Scene.FallbackGround,
		Records:             c.Observations.Records,
		MinLinks:            c.Observations.MinLinks,
		MaxLinks:            c.Observations.MaxLinks,
		PickThreshold:       c.Observations.PickThreshold,
		CameraBackoff:       c.Scene.CameraBackoff,
		Seed:                c.Scene.Seed,
	}, nil
}
