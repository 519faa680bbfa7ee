package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/kytos/kytos-utils/internal/napp"
)

// Credentials identify a NApps server user.
type Credentials struct {
	User  string
	Token string
}

// Prompter asks the user for missing credentials.
type Prompter interface {
	Prompt(label string) (string, error)
	Password(label string) (string, error)
}

// TokenStore persists tokens between invocations.
type TokenStore interface {
	SaveToken(user, token string) error
	ClearToken() error
}

// Authenticator supplies a token to calls that need one. A missing user or
// token is asked for, and a call rejected with 401 is retried once with a
// freshly issued token.
type Authenticator struct {
	client *Client
	creds  Credentials
	prompt Prompter
	store  TokenStore
	log    *zap.Logger
}

// NewAuthenticator returns an Authenticator starting from creds.
func NewAuthenticator(creds Credentials, prompt Prompter, store TokenStore, log *zap.Logger) *Authenticator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Authenticator{creds: creds, prompt: prompt, store: store, log: log}
}

// Credentials returns the credentials currently in use.
func (a *Authenticator) Credentials() Credentials { return a.creds }

// Do runs call with a valid token.
func (a *Authenticator) Do(ctx context.Context, call func(token string) error) error {
	if err := a.ensureToken(ctx); err != nil {
		return err
	}

	err := call(a.creds.Token)
	if !unauthorized(err) {
		return err
	}

	a.log.Warn("token rejected, authenticating again", zap.String("user", a.creds.User))
	if err := a.Forget(); err != nil {
		return err
	}
	if err := a.ensureToken(ctx); err != nil {
		return err
	}
	return call(a.creds.Token)
}

// Forget drops the current token, locally and in the store.
func (a *Authenticator) Forget() error {
	a.creds.Token = ""
	if a.store == nil {
		return nil
	}
	if err := a.store.ClearToken(); err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}
	return nil
}

func (a *Authenticator) ensureToken(ctx context.Context) error {
	if a.creds.Token != "" && a.creds.User != "" {
		return nil
	}
	if a.prompt == nil {
		return errors.New("no NApps server credentials configured")
	}
	if a.creds.User == "" {
		user, err := a.prompt.Prompt("Enter the username")
		if err != nil {
			return err
		}
		a.creds.User = user
	}

	password, err := a.prompt.Password(fmt.Sprintf("Enter the password for %s", a.creds.User))
	if err != nil {
		return err
	}
	token, err := a.client.Authenticate(ctx, a.creds.User, password)
	if err != nil {
		return err
	}
	a.creds.Token = token

	if a.store != nil {
		if err := a.store.SaveToken(a.creds.User, token); err != nil {
			return fmt.Errorf("saving token: %w", err)
		}
	}
	return nil
}

func unauthorized(err error) bool {
	var re *napp.RegistryError
	return errors.As(err, &re) && re.Status == http.StatusUnauthorized
}
