package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/kytos/kytos-utils/internal/napp"
	"github.com/kytos/kytos-utils/internal/packaging"
	"github.com/kytos/kytos-utils/internal/transport"
)

// Options configures a Client.
type Options struct {
	API       string // NApps server API root, e.g. https://napps.kytos.io/api/
	Repo      string // package repository root, e.g. https://napps.kytos.io/repo/
	Timeout   time.Duration
	Retries   int
	UserAgent string
	Logger    *zap.Logger
	Cache     *Cache
	Auth      *Authenticator
}

// Client talks to the NApps server.
type Client struct {
	http  *resty.Client
	repo  string
	log   *zap.Logger
	cache *Cache
	auth  *Authenticator
}

// New returns a Client. Without an Authenticator, calls that need a token
// fail.
func New(opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		http: transport.New(transport.Options{
			BaseURL:   opts.API,
			Timeout:   opts.Timeout,
			Retries:   opts.Retries,
			UserAgent: opts.UserAgent,
			Logger:    log,
		}),
		repo:  opts.Repo,
		log:   log,
		cache: opts.Cache,
		auth:  opts.Auth,
	}
	if c.auth == nil {
		c.auth = NewAuthenticator(Credentials{}, nil, nil, log)
	}
	c.auth.client = c
	return c
}

// Authenticator returns the authenticator used for token calls.
func (c *Client) Authenticator() *Authenticator { return c.auth }

// Catalog lists every published NApp.
func (c *Client) Catalog(ctx context.Context) ([]Descriptor, error) {
	if napps, ok := c.cache.Load(); ok {
		c.log.Debug("using cached catalog", zap.Int("napps", len(napps)))
		return napps, nil
	}

	var out struct {
		NApps []Descriptor `json:"napps"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("napps/")
	if err != nil {
		return nil, unreachable(err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, registryError("list napps", resp)
	}

	sort.Slice(out.NApps, func(i, j int) bool {
		return out.NApps[i].Key().Compare(out.NApps[j].Key()) < 0
	})
	c.cache.Store(out.NApps)
	return out.NApps, nil
}

// Get fetches one NApp. An unknown NApp is a *napp.NotFoundError.
func (c *Client) Get(ctx context.Context, k napp.Key) (*Descriptor, error) {
	var desc Descriptor
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&desc).
		SetPathParams(map[string]string{"ns": k.Namespace, "name": k.Name}).
		Get("napps/{ns}/{name}/")
	if err != nil {
		return nil, unreachable(err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return &desc, nil
	case http.StatusNotFound:
		return nil, &napp.NotFoundError{Key: k}
	default:
		return nil, registryError("get "+k.String(), resp)
	}
}

// Delete removes a published NApp. The server answers 405 when the user
// may not delete it.
func (c *Client) Delete(ctx context.Context, k napp.Key) error {
	return c.auth.Do(ctx, func(token string) error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(map[string]string{"token": token}).
			SetPathParams(map[string]string{"ns": k.Namespace, "name": k.Name}).
			Delete("napps/{ns}/{name}/")
		if err != nil {
			return unreachable(err)
		}
		switch {
		case resp.IsSuccess():
			c.cache.Invalidate()
			return nil
		case resp.StatusCode() == http.StatusMethodNotAllowed:
			return &napp.DeleteForbiddenError{Key: k, Detail: errorDetail(resp)}
		default:
			return registryError("delete "+k.String(), resp)
		}
	})
}

// Upload publishes a package together with its metadata. A rejected upload
// clears the stored token, so the next attempt authenticates again.
func (c *Client) Upload(ctx context.Context, meta map[string]any, pkg io.Reader) error {
	k := napp.Key{Namespace: stringField(meta, "username", "author"), Name: stringField(meta, "name")}
	filename := k.Name + packaging.Extension
	data, err := io.ReadAll(pkg)
	if err != nil {
		return fmt.Errorf("reading package: %w", err)
	}

	return c.auth.Do(ctx, func(token string) error {
		form := formValues(meta)
		form.Set("token", token)

		resp, err := c.http.R().
			SetContext(ctx).
			SetFormDataFromValues(form).
			SetFileReader("file", filename, bytes.NewReader(data)).
			Post("napps/")
		if err != nil {
			return unreachable(err)
		}
		if resp.StatusCode() != http.StatusCreated {
			if ferr := c.auth.Forget(); ferr != nil {
				c.log.Warn("could not clear token", zap.Error(ferr))
			}
			return registryError("upload "+k.String(), resp)
		}
		c.cache.Invalidate()
		return nil
	})
}

// Authenticate exchanges a password for a token.
func (c *Client) Authenticate(ctx context.Context, user, password string) (string, error) {
	var out struct {
		Hash string `json:"hash"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(user, password).
		SetResult(&out).
		Get("auth/")
	if err != nil {
		return "", unreachable(err)
	}
	if resp.StatusCode() != http.StatusCreated || out.Hash == "" {
		return "", registryError("authenticate "+user, resp)
	}
	return out.Hash, nil
}

// RegisterUser creates a NApps server account and returns the server's
// answer for display.
func (c *Client) RegisterUser(ctx context.Context, user map[string]string) (string, error) {
	resp, err := c.http.R().SetContext(ctx).SetBody(user).Post("users/")
	if err != nil {
		return "", unreachable(err)
	}
	if !resp.IsSuccess() {
		return "", registryError("register user "+user["username"], resp)
	}
	return strings.TrimSpace(resp.String()), nil
}

// Download opens the package of id from the package repository. The
// latest version is resolved through the server first. The caller closes
// the returned reader.
func (c *Client) Download(ctx context.Context, id napp.Identity) (io.ReadCloser, error) {
	version := id.Version
	if id.IsLatest() {
		desc, err := c.Get(ctx, id.Key)
		if err != nil {
			return nil, err
		}
		version = desc.Latest()
	}

	u, err := url.JoinPath(c.repo, id.Namespace, fmt.Sprintf("%s-%s%s", id.Name, version, packaging.Extension))
	if err != nil {
		return nil, fmt.Errorf("building package URL: %w", err)
	}

	resp, err := c.http.R().SetContext(ctx).SetDoNotParseResponse(true).Get(u)
	if err != nil {
		return nil, unreachable(err)
	}
	body := resp.RawBody()
	switch resp.StatusCode() {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		body.Close()
		return nil, &napp.NotFoundError{Key: id.Key}
	default:
		body.Close()
		return nil, &napp.RegistryError{Op: "download " + id.String(), Status: resp.StatusCode()}
	}
}

func unreachable(err error) error {
	return fmt.Errorf("couldn't connect to NApps server: %w", err)
}

func registryError(op string, resp *resty.Response) error {
	return &napp.RegistryError{Op: op, Status: resp.StatusCode(), Detail: errorDetail(resp)}
}

// errorDetail extracts the "error" member the server sends with failures,
// falling back to the raw body.
func errorDetail(resp *resty.Response) string {
	body := resp.Body()
	var out struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &out) == nil && out.Error != "" {
		return out.Error
	}
	return strings.TrimSpace(string(body))
}

func stringField(meta map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := meta[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// formValues flattens upload metadata into form fields. Lists become
// repeated fields; nested objects are sent as JSON.
func formValues(meta map[string]any) url.Values {
	form := url.Values{}
	for k, v := range meta {
		switch val := v.(type) {
		case nil:
		case string:
			form.Set(k, val)
		case []any:
			for _, item := range val {
				form.Add(k, fmt.Sprint(item))
			}
		case []string:
			for _, item := range val {
				form.Add(k, item)
			}
		case map[string]any:
			data, err := json.Marshal(val)
			if err == nil {
				form.Set(k, string(data))
			}
		default:
			form.Set(k, fmt.Sprint(val))
		}
	}
	return form
}
