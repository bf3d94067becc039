// Package dataset fetches the raw points of a named point cloud and watches dataset files for
// changes.
package dataset

import (
	"context"
	"path/filepath"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/pointwalk/pointwalk/logging"
	"github.com/pointwalk/pointwalk/pointcloud"
)

// A Loader returns the raw survey points of a dataset.
type Loader interface {
	Load(ctx context.Context, name string) ([]r3.Vector, error)
}

// FileLoader loads datasets from CSV, LAS or PCD files. Relative names are resolved against Dir.
type FileLoader struct {
	Dir    string
	Logger logging.Logger
}

// Path returns the file a dataset name refers to.
func (fl *FileLoader) Path(name string) string {
	if filepath.IsAbs(name) || fl.Dir == "" {
		return name
	}
	return filepath.Join(fl.Dir, name)
}

// Load implements Loader.
func (fl *FileLoader) Load(ctx context.Context, name string) ([]r3.Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := fl.Logger
	if logger == nil {
		logger = logging.Global()
	}
	points, err := pointcloud.ReadFile(fl.Path(name), logger)
	if err != nil {
		return nil, errors.Wrapf(err, "loading dataset %q", name)
	}
	return points, nil
}

// StaticLoader serves datasets kept in memory.
type StaticLoader map[string][]r3.Vector

// Load implements Loader.
func (sl StaticLoader) Load(ctx context.Context, name string) ([]r3.Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	points, ok := sl[name]
	if !ok {
		return nil, errors.Errorf("no dataset named %q", name)
	}
	return append([]r3.Vector(nil), points...), nil
}

// CatalogLoader loads datasets by name, resolving each name to its file through Files. Names
// missing from Files are treated as file names.
type CatalogLoader struct {
	Files map[string]string
	FileLoader
}

// Load implements Loader.
func (cl *CatalogLoader) Load(ctx context.Context, name string) ([]r3.Vector, error) {
	if path, ok := cl.Files[name]; ok {
		return cl.FileLoader.Load(ctx, path)
	}
	return cl.FileLoader.Load(ctx, name)
}
