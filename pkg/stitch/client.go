package stitch

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aussiebroadwan/stitch/pkg/stitchauth"
)

// AuthListener is notified of auth events of one client.
type AuthListener interface {
	OnAuthEvent(c *Client, e stitchauth.Event)
}

// AuthListenerFunc adapts a function to AuthListener.
type AuthListenerFunc func(c *Client, e stitchauth.Event)

func (f AuthListenerFunc) OnAuthEvent(c *Client, e stitchauth.Event) { f(c, e) }

// Client is the entry point to one Stitch app.
type Client struct {
	auth *stitchauth.Auth

	mu        sync.RWMutex
	nextID    int
	listeners []listenerEntry
}

type listenerEntry struct {
	id int
	l  AuthListener
}

// NewClient creates the auth core for cfg and wires its events to the
// client's listeners. A callback already set in cfg.OnAuthEvent still runs,
// before the listeners.
func NewClient(ctx context.Context, cfg stitchauth.Config) (*Client, error) {
	c := &Client{}

	userHook := cfg.OnAuthEvent
	cfg.OnAuthEvent = func(e stitchauth.Event) {
		if userHook != nil {
			userHook(e)
		}
		c.dispatch(e)
	}

	auth, err := stitchauth.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.auth = auth
	return c, nil
}

// Auth exposes login, logout, user switching and raw authenticated requests.
func (c *Client) Auth() *stitchauth.Auth {
	return c.auth
}

// Close stops background token refresh.
func (c *Client) Close() {
	c.auth.Close()
}

// AddAuthListener registers l and returns a function that unregisters it.
func (c *Client) AddAuthListener(l AuthListener) (remove func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listenerEntry{id: id, l: l})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, e := range c.listeners {
			if e.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

func (c *Client) dispatch(e stitchauth.Event) {
	c.mu.RLock()
	ls := make([]AuthListener, len(c.listeners))
	for i, entry := range c.listeners {
		ls[i] = entry.l
	}
	c.mu.RUnlock()

	for _, l := range ls {
		l.OnAuthEvent(c, e)
	}
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments []any  `json:"arguments"`
}

// CallFunction runs the named server function as the active user and decodes
// its JSON result into out. A nil out discards the result.
func (c *Client) CallFunction(ctx context.Context, name string, args []any, out any) error {
	if args == nil {
		args = []any{}
	}

	resp, err := c.auth.DoAuthenticatedRequest(ctx, stitchauth.Request{
		Method:   http.MethodPost,
		Path:     stitchauth.AppPath(c.auth.AppID()) + "/functions/call",
		Document: functionCall{Name: name, Arguments: args},
	})
	if err != nil {
		return err
	}

	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &stitchauth.RequestError{Code: stitchauth.RequestErrorDecoding, Err: err}
	}
	return nil
}
