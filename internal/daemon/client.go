// Package daemon is the client of the Kytos controller's REST API. It
// reports which NApps are installed and enabled and asks the controller to
// change that.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/kytos/kytos-utils/internal/napp"
	"github.com/kytos/kytos-utils/internal/transport"
)

const corePrefix = "api/kytos/core/"

// Options configures a Client.
type Options struct {
	API       string // daemon root, e.g. http://localhost:8181/
	Timeout   time.Duration
	Retries   int
	UserAgent string
	Logger    *zap.Logger
}

// Client talks to a running Kytos daemon.
type Client struct {
	http *resty.Client
	base string
	log  *zap.Logger
}

// Roots are the directories the daemon loads NApps from.
type Roots struct {
	Enabled   string `json:"napps"`
	Installed string `json:"installed_napps"`
}

// New returns a Client for the daemon at opts.API.
func New(opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	base := strings.TrimRight(opts.API, "/") + "/" + corePrefix
	return &Client{
		http: transport.New(transport.Options{
			BaseURL:   base,
			Timeout:   opts.Timeout,
			Retries:   opts.Retries,
			UserAgent: opts.UserAgent,
			Logger:    log,
		}),
		base: base,
		log:  log,
	}
}

// Enabled lists the NApps the daemon has loaded.
func (c *Client) Enabled(ctx context.Context) ([]napp.Key, error) {
	return c.keys(ctx, "napps_enabled")
}

// Installed lists the NApps the daemon can load.
func (c *Client) Installed(ctx context.Context) ([]napp.Key, error) {
	return c.keys(ctx, "napps_installed")
}

func (c *Client) keys(ctx context.Context, path string) ([]napp.Key, error) {
	var out struct {
		NApps [][]string `json:"napps"`
	}
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}

	keys := make([]napp.Key, 0, len(out.NApps))
	for _, pair := range out.NApps {
		if len(pair) < 2 {
			c.log.Warn("ignoring malformed napp entry", zap.Strings("entry", pair), zap.String("path", path))
			continue
		}
		keys = append(keys, napp.Key{Namespace: pair[0], Name: pair[1]})
	}
	slices.SortFunc(keys, napp.Key.Compare)
	return keys, nil
}

// Metadata returns one field of an installed NApp's kytos.json, or nil when
// the field is absent.
func (c *Client) Metadata(ctx context.Context, k napp.Key, field string) (json.RawMessage, error) {
	path := fmt.Sprintf("napps/%s/%s/metadata/%s", k.Namespace, k.Name, field)
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusNotFound:
		return nil, &napp.NotInstalledError{Key: k}
	default:
		return nil, c.protocolError(path, resp)
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", c.base+path, err)
	}
	return out[field], nil
}

// Enable asks the daemon to load k.
func (c *Client) Enable(ctx context.Context, k napp.Key) error {
	return c.lifecycle(ctx, k, "enable")
}

// Disable asks the daemon to unload k.
func (c *Client) Disable(ctx context.Context, k napp.Key) error {
	return c.lifecycle(ctx, k, "disable")
}

// Install asks the daemon to fetch and install id. The daemon always
// installs what the NApps server currently serves.
func (c *Client) Install(ctx context.Context, id napp.Identity) error {
	return c.lifecycle(ctx, id.Key, "install")
}

// Uninstall asks the daemon to remove k's code.
func (c *Client) Uninstall(ctx context.Context, k napp.Key) error {
	return c.lifecycle(ctx, k, "uninstall")
}

func (c *Client) lifecycle(ctx context.Context, k napp.Key, op string) error {
	path := fmt.Sprintf("napps/%s/%s/%s", k.Namespace, k.Name, op)
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	switch {
	case resp.IsSuccess():
		return nil
	case resp.StatusCode() == http.StatusBadRequest:
		return &napp.NotInstalledError{Key: k}
	default:
		return c.protocolError(path, resp)
	}
}

// Reload asks the daemon to reload the code of keys, or of every NApp
// when keys is empty. The first failure stops the reload.
func (c *Client) Reload(ctx context.Context, keys []napp.Key) error {
	paths := []string{"reload/all"}
	if len(keys) > 0 {
		paths = paths[:0]
		for _, k := range keys {
			paths = append(paths, fmt.Sprintf("reload/%s/%s", k.Namespace, k.Name))
		}
	}

	for _, path := range paths {
		resp, err := c.get(ctx, path)
		if err != nil {
			return err
		}
		if !resp.IsSuccess() {
			return &napp.RegistryError{
				Op:     strings.ReplaceAll(path, "/", " "),
				Status: resp.StatusCode(),
				Detail: strings.TrimSpace(resp.String()),
			}
		}
	}
	return nil
}

// Roots returns the enabled and installed directories the daemon uses.
func (c *Client) Roots(ctx context.Context) (Roots, error) {
	var roots Roots
	if err := c.getJSON(ctx, "config/", &roots); err != nil {
		return Roots{}, err
	}
	return roots, nil
}

// Version returns the daemon's version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	var out struct {
		Version string `json:"__version__"`
	}
	if err := c.getJSON(ctx, "metadata/", &out); err != nil {
		return "", err
	}
	return out.Version, nil
}

// UpdateWeb asks the daemon to fetch its web UI, the latest release when
// version is empty.
func (c *Client) UpdateWeb(ctx context.Context, version string) error {
	path := "web/update"
	if version != "" {
		path += "/" + version
	}
	resp, err := c.http.R().SetContext(ctx).Post(path)
	if err != nil {
		return &napp.DaemonUnreachableError{URL: c.base + path, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return c.protocolError(path, resp)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) (*resty.Response, error) {
	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, &napp.DaemonUnreachableError{URL: c.base + path, Err: err}
	}
	c.log.Debug("daemon answered", zap.String("path", path), zap.Int("status", resp.StatusCode()))
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return c.protocolError(path, resp)
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decoding %s: %w", c.base+path, err)
	}
	return nil
}

func (c *Client) protocolError(path string, resp *resty.Response) error {
	return &napp.DaemonProtocolError{
		URL:    c.base + path,
		Status: resp.StatusCode(),
		Body:   strings.TrimSpace(resp.String()),
	}
}
