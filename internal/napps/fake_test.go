package napps

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/kytos/kytos-utils/internal/napp"
)

// fakeController keeps NApp state in memory and records the calls it gets.
type fakeController struct {
	mu        sync.Mutex
	installed napp.Set
	enabled   napp.Set
	meta      map[napp.Key]map[string]any
	fail      map[string]error // "op ns/name" -> error
	down      error            // returned by every call when set
	calls     []string
}

func newFakeController() *fakeController {
	return &fakeController{
		installed: napp.NewSet(),
		enabled:   napp.NewSet(),
		meta:      map[napp.Key]map[string]any{},
		fail:      map[string]error{},
	}
}

func (f *fakeController) withInstalled(refs ...string) *fakeController {
	for _, ref := range refs {
		f.installed.Add(napp.MustParse(ref).Key)
	}
	return f
}

func (f *fakeController) withEnabled(refs ...string) *fakeController {
	for _, ref := range refs {
		f.enabled.Add(napp.MustParse(ref).Key)
	}
	return f
}

func (f *fakeController) withMeta(ref string, meta map[string]any) *fakeController {
	f.meta[napp.MustParse(ref).Key] = meta
	return f
}

func (f *fakeController) record(op string, k napp.Key) error {
	f.calls = append(f.calls, op+" "+k.String())
	if f.down != nil {
		return f.down
	}
	return f.fail[op+" "+k.String()]
}

func (f *fakeController) Installed(context.Context) ([]napp.Key, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down != nil {
		return nil, f.down
	}
	return f.installed.Sorted(), nil
}

func (f *fakeController) Enabled(context.Context) ([]napp.Key, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down != nil {
		return nil, f.down
	}
	return f.enabled.Sorted(), nil
}

func (f *fakeController) Metadata(_ context.Context, k napp.Key, field string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down != nil {
		return nil, f.down
	}
	if !f.installed.Contains(k) {
		return nil, &napp.NotInstalledError{Key: k}
	}
	v, ok := f.meta[k][field]
	if !ok {
		return nil, nil
	}
	return json.Marshal(v)
}

func (f *fakeController) Enable(_ context.Context, k napp.Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("enable", k); err != nil {
		return err
	}
	if !f.installed.Contains(k) {
		return &napp.NotInstalledError{Key: k}
	}
	f.enabled.Add(k)
	return nil
}

func (f *fakeController) Disable(_ context.Context, k napp.Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("disable", k); err != nil {
		return err
	}
	delete(f.enabled, k)
	return nil
}

func (f *fakeController) Install(_ context.Context, id napp.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("install", id.Key); err != nil {
		return err
	}
	f.installed.Add(id.Key)
	return nil
}

func (f *fakeController) Uninstall(_ context.Context, k napp.Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("uninstall", k); err != nil {
		return err
	}
	delete(f.installed, k)
	return nil
}

func (f *fakeController) Reload(_ context.Context, keys []napp.Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(keys) == 0 {
		f.calls = append(f.calls, "reload all")
		return f.down
	}
	for _, k := range keys {
		if err := f.record("reload", k); err != nil {
			return err
		}
	}
	return nil
}

// fakeLocal is a LocalSource holding working copies of some NApps.
type fakeLocal struct {
	ctrl   *fakeController
	copies napp.Set
}

func (l *fakeLocal) InstallLocal(_ context.Context, id napp.Identity) error {
	if !l.copies.Contains(id.Key) {
		return napp.ErrNotFoundLocally
	}
	l.ctrl.mu.Lock()
	defer l.ctrl.mu.Unlock()
	l.ctrl.calls = append(l.ctrl.calls, "local "+id.Key.String())
	l.ctrl.installed.Add(id.Key)
	return nil
}

type countingRecorder struct {
	counts map[string]int
}

func (r *countingRecorder) Observe(op, outcome string) {
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[op+"/"+outcome]++
}
