package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/pointwalk/pointwalk/config"
	"github.com/pointwalk/pointwalk/logging"
	"github.com/pointwalk/pointwalk/perspective"
	"github.com/pointwalk/pointwalk/session"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck // no need to check for errors when printing to the terminal
	fmt.Fprintf(w, format+"\n", a...)
}

// infof prints a message prefixed with a bold cyan "Info: ".
func infof(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	color.New(color.Bold, color.FgCyan).Fprint(w, "Info: ")
	printf(w, format, a...)
}

// warningf prints a message prefixed with a bold yellow "Warning: ".
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	color.New(color.Bold, color.FgYellow).Fprint(w, "Warning: ")
	printf(w, format, a...)
}

// runner holds what every command needs: the loaded config and the loggers it drives.
type runner struct {
	conf     *config.Config
	logger   logging.Logger
	registry *logging.Registry
	logFile  *logging.FileAppender
}

// loggerNames are the named loggers whose levels `log` patterns in the config may set.
var loggerNames = []string{"manager", "dataset", "export"}

func newRunner(c *cli.Context) (*runner, error) {
	logger := logging.NewLogger("pointwalk")
	if c.Bool(generalFlagDebug) {
		logger = logging.NewDebugLogger("pointwalk")
	}

	var conf *config.Config
	var err error
	if path := c.String(generalFlagConfig); path != "" {
		conf, err = config.Read(c.Context, path, logger)
	} else {
		conf, err = config.Default(c.String(flagDataset))
	}
	if err != nil {
		return nil, err
	}

	r := &runner{conf: conf, logger: logger, registry: logging.NewRegistry()}
	if conf.LogFile != "" {
		path := conf.LogFile
		if !filepath.IsAbs(path) && conf.DataDir != "" {
			path = filepath.Join(conf.DataDir, path)
		}
		r.logFile = logging.NewFileAppender(path, conf.LogFileMaxSizeMB)
		logger.AddAppender(r.logFile)
	}
	if err := r.registry.Register("pointwalk", logger); err != nil {
		return nil, err
	}
	for _, name := range loggerNames {
		if err := r.registry.Register("pointwalk."+name, logger.Sublogger(name)); err != nil {
			return nil, err
		}
	}
	level := conf.Level()
	if c.Bool(generalFlagDebug) {
		level = logging.DEBUG
	}
	if err := r.registry.UpdateConfig(conf.Log, level, logger); err != nil {
		return nil, err
	}
	return r, nil
}

// named returns the registered logger with the given suffix.
func (r *runner) named(name string) logging.Logger {
	if logger, ok := r.registry.LoggerNamed("pointwalk." + name); ok {
		return logger
	}
	return r.logger.Sublogger(name)
}

// datasetName picks the dataset a command works on: the --dataset flag, then the first argument,
// then the configured initial dataset.
func (r *runner) datasetName(c *cli.Context) (string, error) {
	if name := c.String(flagDataset); name != "" {
		return name, nil
	}
	if name := c.Args().First(); name != "" {
		return name, nil
	}
	if r.conf.InitialDataset != "" {
		return r.conf.InitialDataset, nil
	}
	return "", errors.New("no dataset given, pass --dataset or configure initial_dataset")
}

// datasetPath is the file a dataset name resolves to.
func (r *runner) datasetPath(name string) string {
	loader := r.conf.Loader(r.named("dataset"))
	if ds, ok := r.conf.Dataset(name); ok {
		return loader.Path(ds.Path)
	}
	return loader.Path(name)
}

// sessionOptions returns the configured session options with command line overrides applied.
func (r *runner) sessionOptions(c *cli.Context) (session.Options, error) {
	opts, err := r.conf.SessionOptions()
	if err != nil {
		return session.Options{}, err
	}
	if c.IsSet(flagPerspective) {
		kind, err := perspective.ParseKind(c.String(flagPerspective))
		if err != nil {
			return session.Options{}, err
		}
		opts.Initial = kind
	}
	if c.IsSet(flagSeed) {
		opts.Seed = c.Int64(flagSeed)
	}
	return opts, nil
}

// newManager builds a manager over the configured datasets and loads the selected one.
func (r *runner) newManager(c *cli.Context) (*session.Manager, string, error) {
	name, err := r.datasetName(c)
	if err != nil {
		return nil, "", err
	}
	opts, err := r.sessionOptions(c)
	if err != nil {
		return nil, "", err
	}
	manager := session.NewManager(r.conf.Loader(r.named("dataset")), opts, r.named("manager"))
	if err := manager.Load(c.Context, name); err != nil {
		return nil, "", err
	}
	return manager, name, nil
}

func (r *runner) close() {
	//nolint:errcheck
	r.logger.Sync()
	if r.logFile != nil {
		//nolint:errcheck
		r.logFile.Close()
	}
}

// inputFromFlags is the input a scripted walk repeats every frame.
func inputFromFlags(c *cli.Context) perspective.Input {
	return perspective.Input{
		Forward: c.Bool(flagWalk),
		MouseDX: c.Float64(flagTurn),
	}
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
