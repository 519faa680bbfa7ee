// Package napps reconciles the installed and enabled NApp sets reported by
// the controller with what the user asks for, and drives the lifecycle
// transitions (install, enable, disable, uninstall) idempotently.
package napps

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/kytos/kytos-utils/internal/napp"
	"github.com/kytos/kytos-utils/internal/registry"
)

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/registry_mock.go -package=mocks . Registry

// Controller reports and changes NApp state. The daemon client and the
// offline filesystem store both implement it.
type Controller interface {
	Installed(ctx context.Context) ([]napp.Key, error)
	Enabled(ctx context.Context) ([]napp.Key, error)
	Metadata(ctx context.Context, k napp.Key, field string) (json.RawMessage, error)
	Enable(ctx context.Context, k napp.Key) error
	Disable(ctx context.Context, k napp.Key) error
	Install(ctx context.Context, id napp.Identity) error
	Uninstall(ctx context.Context, k napp.Key) error
	// Reload reloads the given NApps, or every NApp when keys is empty.
	Reload(ctx context.Context, keys []napp.Key) error
}

// LocalSource installs a NApp from a working copy on disk. It returns
// napp.ErrNotFoundLocally when it has nothing for the identity.
type LocalSource interface {
	InstallLocal(ctx context.Context, id napp.Identity) error
}

// Registry is the part of the NApps server client the manager needs.
type Registry interface {
	Catalog(ctx context.Context) ([]registry.Descriptor, error)
	Get(ctx context.Context, k napp.Key) (*registry.Descriptor, error)
	Delete(ctx context.Context, k napp.Key) error
}

// Recorder observes operation outcomes.
type Recorder interface {
	Observe(op, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) Observe(string, string) {}

// Manager is the NApp manager. It keeps no state between calls: every
// question is answered from fresh controller queries.
type Manager struct {
	ctrl  Controller
	local LocalSource
	reg   Registry
	log   *zap.Logger
	rec   Recorder
}

// Option configures a Manager.
type Option func(*Manager)

// WithLocalSource enables installs from working copies.
func WithLocalSource(l LocalSource) Option {
	return func(m *Manager) { m.local = l }
}

// WithRegistry enables remote installs, deletes and search.
func WithRegistry(r Registry) Option {
	return func(m *Manager) { m.reg = r }
}

// WithLogger sets the logger per-NApp progress is reported on.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.rec = r }
}

// New creates a Manager driving ctrl.
func New(ctrl Controller, opts ...Option) *Manager {
	m := &Manager{
		ctrl: ctrl,
		log:  zap.NewNop(),
		rec:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Outcome is how a single transition ended.
type Outcome int

const (
	// Done means the NApp changed state.
	Done Outcome = iota
	// NoOp means the NApp already was in the requested state.
	NoOp
	// Failed means the transition could not be carried out.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Done:
		return "done"
	case NoOp:
		return "noop"
	default:
		return "failed"
	}
}

// Result is the outcome of one entry of a batch.
type Result struct {
	ID      napp.Identity
	Outcome Outcome
	Err     error
}

func (m *Manager) observe(op string, outcome Outcome) {
	m.rec.Observe(op, outcome.String())
}
