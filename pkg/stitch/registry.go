package stitch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aussiebroadwan/stitch/pkg/stitchauth"
)

var (
	ErrAppAlreadyInitialized = errors.New("stitch: app client already initialized")
	ErrAppNotInitialized     = errors.New("stitch: app client not initialized")
)

// Registry holds at most one Client per app id. The first client initialized
// is the default.
type Registry struct {
	mu         sync.Mutex
	clients    map[string]*Client
	defaultApp string
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Init creates and registers the client for cfg.AppID.
func (r *Registry) Init(ctx context.Context, cfg stitchauth.Config) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[cfg.AppID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAppAlreadyInitialized, cfg.AppID)
	}

	c, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	r.clients[cfg.AppID] = c
	if r.defaultApp == "" {
		r.defaultApp = cfg.AppID
	}
	return c, nil
}

func (r *Registry) Get(appID string) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[appID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAppNotInitialized, appID)
	}
	return c, nil
}

func (r *Registry) Has(appID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.clients[appID]
	return ok
}

// Default returns the first client initialized.
func (r *Registry) Default() (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.defaultApp == "" {
		return nil, ErrAppNotInitialized
	}
	return r.clients[r.defaultApp], nil
}

// Clear closes and forgets every client.
func (r *Registry) Clear() {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[string]*Client)
	r.defaultApp = ""
	r.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}
