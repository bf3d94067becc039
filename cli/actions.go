package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/benbjohnson/clock"
	"github.com/bep/debounce"
	"github.com/docker/go-units"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/pointwalk/pointwalk/agents"
	"github.com/pointwalk/pointwalk/config"
	"github.com/pointwalk/pointwalk/dataset"
	"github.com/pointwalk/pointwalk/perspective"
	"github.com/pointwalk/pointwalk/pointcloud"
	"github.com/pointwalk/pointwalk/session"
	"github.com/pointwalk/pointwalk/utils"
)

func formatRange(lo, hi float64) string {
	return fmt.Sprintf("%.2f .. %.2f", lo, hi)
}

// datasetStats is what the stats command learned about one dataset.
type datasetStats struct {
	summary pointcloud.Summary
	size    int64
	heights histogram.Histogram
}

// summaryTable renders the summaries of several datasets side by side.
func summaryTable(stats []datasetStats) string {
	t := table.NewWriter()
	header := table.Row{""}
	for _, s := range stats {
		header = append(header, s.summary.Source)
	}
	t.AppendHeader(header)

	row := func(label string, value func(pointcloud.Summary) string) {
		r := table.Row{label}
		for _, s := range stats {
			r = append(r, value(s.summary))
		}
		t.AppendRow(r)
	}
	sizes := table.Row{"File size"}
	for _, s := range stats {
		sizes = append(sizes, units.HumanSize(float64(s.size)))
	}
	t.AppendRow(sizes)
	row("Points", func(s pointcloud.Summary) string { return fmt.Sprintf("%d", s.Count) })
	row("Unparsable rows", func(s pointcloud.Summary) string { return fmt.Sprintf("%d", s.NaNCount) })
	row("Scale", func(s pointcloud.Summary) string { return fmt.Sprintf("%.4f", s.Scale) })
	row("Raw X", func(s pointcloud.Summary) string { return formatRange(s.Raw.MinX, s.Raw.MaxX) })
	row("Raw Y", func(s pointcloud.Summary) string { return formatRange(s.Raw.MinY, s.Raw.MaxY) })
	row("Raw height", func(s pointcloud.Summary) string { return formatRange(s.Raw.MinZ, s.Raw.MaxZ) })
	row("Scene height", func(s pointcloud.Summary) string { return formatRange(s.Scene.MinY, s.Scene.MaxY) })
	row("Height mean", func(s pointcloud.Summary) string { return fmt.Sprintf("%.2f", s.HeightMean) })
	row("Height median", func(s pointcloud.Summary) string { return fmt.Sprintf("%.2f", s.HeightMedian) })
	row("Height std dev", func(s pointcloud.Summary) string { return fmt.Sprintf("%.2f", s.HeightStdDev) })
	return t.Render()
}

// StatsAction prints the summary of every dataset named on the command line, or of every
// configured dataset. Datasets are loaded concurrently.
func StatsAction(c *cli.Context) error {
	r, err := newRunner(c)
	if err != nil {
		return err
	}
	defer r.close()

	names := c.Args().Slice()
	if len(names) == 0 {
		for _, ds := range r.conf.Datasets {
			names = append(names, ds.Name)
		}
	}
	if len(names) == 0 {
		return errors.New("no datasets to summarize")
	}
	bins := c.Int(flagHistogram)
	if bins < 0 {
		return errors.Errorf("--%s must not be negative", flagHistogram)
	}

	opts, err := r.conf.SessionOptions()
	if err != nil {
		return err
	}
	loader := r.conf.Loader(r.named("dataset"))
	stats := make([]datasetStats, len(names))
	errs, ctx := errgroup.WithContext(c.Context)
	for i, name := range names {
		i, name := i, name
		errs.Go(func() error {
			raw, err := loader.Load(ctx, name)
			if err != nil {
				return err
			}
			info, err := os.Stat(r.datasetPath(name))
			if err != nil {
				return err
			}
			normalize := opts.Normalize
			normalize.Source = name
			store := pointcloud.Normalize(raw, normalize)
			summary, err := pointcloud.Summarize(store)
			if err != nil {
				return errors.Wrapf(err, "summarizing dataset %q", name)
			}
			stats[i] = datasetStats{summary: summary, size: info.Size()}
			if bins > 0 {
				stats[i].heights = pointcloud.HeightHistogram(store, bins)
			}
			return nil
		})
	}
	if err := errs.Wait(); err != nil {
		return err
	}

	for _, s := range stats {
		if s.summary.NaNCount > 0 {
			warningf(c.App.ErrWriter, "%d rows of %q could not be parsed", s.summary.NaNCount, s.summary.Source)
		}
	}
	printf(c.App.Writer, "%s", summaryTable(stats))
	for _, s := range stats {
		if s.heights.Count == 0 {
			continue
		}
		printf(c.App.Writer, "\nscene heights of %q", s.summary.Source)
		if err := histogram.Fprint(c.App.Writer, s.heights, histogram.Linear(40)); err != nil {
			return err
		}
	}
	return nil
}

// PerspectivesAction prints the configured viewpoint profiles.
func PerspectivesAction(c *cli.Context) error {
	r, err := newRunner(c)
	if err != nil {
		return err
	}
	defer r.close()

	profiles, err := r.conf.PerspectiveTable()
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Perspective", "Eye height", "Move", "Rotate", "Follows terrain", "Sphere", "Description"})
	for _, kind := range perspective.Kinds {
		cfg := profiles.Get(kind)
		follow := "no"
		if cfg.TerrainFollow {
			follow = fmt.Sprintf("+%.1f", cfg.TerrainOffset)
		}
		t.AppendRow(table.Row{
			title(kind.String()),
			fmt.Sprintf("%.1f", cfg.EyeHeight()),
			fmt.Sprintf("%.1f", cfg.MoveSpeed),
			fmt.Sprintf("%.1f", cfg.RotateSpeed),
			follow,
			fmt.Sprintf("%.0f", cfg.SphereRadius),
			cfg.Description,
		})
	}
	printf(c.App.Writer, "%s", t.Render())
	return nil
}

// LinksAction prints which points of a dataset link to which observation records.
func LinksAction(c *cli.Context) error {
	r, err := newRunner(c)
	if err != nil {
		return err
	}
	defer r.close()

	manager, name, err := r.newManager(c)
	if err != nil {
		return err
	}
	sess := manager.Current()
	links := sess.Links()
	if len(links) == 0 {
		warningf(c.App.Writer, "dataset %q has no linked points", name)
		return nil
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Point", "Species", "Taxon", "Position"})
	for _, link := range links {
		t.AppendRow(table.Row{
			link.Index,
			link.Record.Species,
			link.Record.Taxon,
			fmt.Sprintf("X:%.0f, Y:%.0f, Z:%.0f", link.Position.X, link.Position.Y, link.Position.Z),
		})
	}
	printf(c.App.Writer, "%s", t.Render())
	infof(c.App.Writer, "%d points link to %d species", len(links), len(links.Species()))
	return nil
}

func printEvents(c *cli.Context, frame int, events []agents.Event) {
	for _, event := range events {
		printf(c.App.Writer, "frame %d: %s %s %d at X:%.0f, Z:%.0f",
			frame, event.Type, event.Agent.Kind, event.Agent.ID, event.Agent.Position.X, event.Agent.Position.Z)
	}
}

func countersTable(counters session.Counters) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Frames", "Mice captured", "Cheese collected", "Touched by human", "Touched by owl", "Touched by mouse"})
	t.AppendRow(table.Row{
		counters.Frames,
		counters.Captures,
		fmt.Sprintf("%d/%d", counters.Collected, counters.CheeseTotal),
		counters.Touched[pointcloud.TouchedByHuman],
		counters.Touched[pointcloud.TouchedByOwl],
		counters.Touched[pointcloud.TouchedByMouse],
	})
	return t.Render()
}

// SimulateAction runs a scripted walk through a dataset and reports the outcome.
func SimulateAction(c *cli.Context) error {
	r, err := newRunner(c)
	if err != nil {
		return err
	}
	defer r.close()

	frames := c.Int(flagFrames)
	if frames < 0 {
		return errors.Errorf("--%s must not be negative", flagFrames)
	}
	manager, _, err := r.newManager(c)
	if err != nil {
		return err
	}
	sess := manager.Current()
	in := inputFromFlags(c)
	for i := 0; i < frames; i++ {
		if err := c.Context.Err(); err != nil {
			return err
		}
		result := sess.Frame(in)
		printEvents(c, result.Frame, result.Events)
		if c.Bool(flagCollect) {
			if agent, ok := sess.Collect(); ok {
				printEvents(c, result.Frame, []agents.Event{{Type: agents.EventCollect, Agent: agent}})
			}
		}
	}
	printf(c.App.Writer, "%s", countersTable(sess.Counters()))
	viewer := sess.Viewer()
	printf(c.App.Writer, "%s viewer at X:%.0f, Y:%.0f, Z:%.0f heading %.1f°", viewer.Kind,
		viewer.Position.X, viewer.Position.Y, viewer.Position.Z, utils.RadToDeg(viewer.Yaw))

	if path := c.Path(flagExport); path != "" {
		pcdType := pointcloud.PCDAscii
		if c.Bool(flagBinary) {
			pcdType = pointcloud.PCDBinary
		}
		if err := exportStore(sess.Store(), path, pcdType); err != nil {
			return err
		}
		r.named("export").Infow("exported point cloud", "path", path, "points", sess.Store().Len())
	}
	return nil
}

// exportStore writes the current scene positions and colors of a store to a .pcd or .las file.
func exportStore(store *pointcloud.Store, path string, pcdType pointcloud.PCDType) (err error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".las":
		return pointcloud.WriteToLASFile(store, path)
	case ".pcd":
		//nolint:gosec
		f, createErr := os.Create(path)
		if createErr != nil {
			return createErr
		}
		defer func() {
			err = multierr.Combine(err, f.Close())
		}()
		return pointcloud.ToPCD(store, f, pcdType)
	default:
		return errors.Errorf("cannot export to %q, use a .pcd or .las file", path)
	}
}

const reloadSettle = 50 * time.Millisecond

// WatchAction runs the frame loop in real time. Whenever the dataset file changes the dataset is
// reloaded into a fresh session.
func WatchAction(c *cli.Context) error {
	r, err := newRunner(c)
	if err != nil {
		return err
	}
	defer r.close()

	manager, name, err := r.newManager(c)
	if err != nil {
		return err
	}
	watcher, err := dataset.NewWatcher(r.datasetPath(name), r.named("dataset"))
	if err != nil {
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			r.logger.Warnw("failed to close watcher", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	if d := c.Duration(flagDuration); d > 0 {
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	// editors often write a file in several steps, reload once they settle
	debounced := debounce.New(reloadSettle)
	reloader := utils.NewStoppableWorkersWithContext(ctx, func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-watcher.Changes():
				if !ok {
					return
				}
				debounced(func() {
					if err := manager.Load(ctx, name); err == nil {
						infof(c.App.Writer, "reloaded dataset %q", name)
					}
				})
			}
		}
	})

	fps := c.Int(flagFPS)
	if fps == 0 {
		fps = r.conf.Scene.FPS
	}
	if fps <= 0 {
		fps = config.DefaultFPS
	}
	in := inputFromFlags(c)
	err = session.Loop(ctx, clock.New(), fps, func() {
		sess := manager.Current()
		result := sess.Frame(in)
		printEvents(c, result.Frame, result.Events)
	})
	reloader.Stop()

	printf(c.App.Writer, "%s", countersTable(manager.Current().Counters()))
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// VersionAction prints the version of the program.
func VersionAction(c *cli.Context) error {
	version := config.Version
	if version == "" {
		version = "(dev)"
	}
	revision := config.GitRevision
	if revision == "" {
		revision = "unknown"
	}
	printf(c.App.Writer, "Version %s Git=%s", version, revision)
	return nil
}
