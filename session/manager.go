package session

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/pointwalk/pointwalk/dataset"
	"github.com/pointwalk/pointwalk/logging"
)

// Manager owns the current session and replaces it whenever a dataset loads.
type Manager struct {
	mu      sync.Mutex
	loader  dataset.Loader
	opts    Options
	logger  logging.Logger
	current *Session
}

// NewManager returns a Manager without a session.
func NewManager(loader dataset.Loader, opts Options, logger logging.Logger) *Manager {
	return &Manager{loader: loader, opts: opts, logger: logger}
}

// Load fetches a dataset and replaces the current session with a new one built from it. When the
// fetch or the build fails the error is logged and returned and the current session is kept.
func (m *Manager) Load(ctx context.Context, name string) error {
	raw, err := m.loader.Load(ctx, name)
	if err != nil {
		m.logger.Errorw("failed to load dataset", "dataset", name, "error", err)
		return err
	}
	sess, err := New(name, raw, m.opts, m.logger.Sublogger("session"))
	if err != nil {
		m.logger.Errorw("failed to build session", "dataset", name, "error", err)
		return err
	}

	m.mu.Lock()
	previous := m.current
	m.current = sess
	m.mu.Unlock()
	if previous != nil {
		m.logger.Infow("dataset switched", "from", previous.Dataset(), "to", name, "session", sess.ID().String())
	}
	return nil
}

// Current returns the current session, or nil before the first successful load.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// MustCurrent returns the current session or ErrNoDataset.
func (m *Manager) MustCurrent() (*Session, error) {
	if sess := m.Current(); sess != nil {
		return sess, nil
	}
	return nil, ErrNoDataset
}

// Loop calls frame on every tick of a clock running at fps until the context is done.
func Loop(ctx context.Context, clk clock.Clock, fps int, frame func()) error {
	if fps <= 0 {
		return errors.Errorf("fps must be positive, got %d", fps)
	}
	ticker := clk.Ticker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			frame()
		}
	}
}
