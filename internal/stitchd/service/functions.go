package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aussiebroadwan/stitch/pkg/slogx"
)

// FunctionCall is one invocation from an authenticated user.
type FunctionCall struct {
	UserID string
	Name   string
	Args   []any
}

// Function is a server-side function callable by clients. The result must be
// JSON-encodable.
type Function func(ctx context.Context, call FunctionCall) (any, error)

// FunctionService dispatches calls to registered functions.
type FunctionService struct {
	mu    sync.RWMutex
	funcs map[string]Function
}

// NewFunctionService registers the built-in functions. whoami reads profiles
// through auth.
func NewFunctionService(auth *AuthService) *FunctionService {
	s := &FunctionService{funcs: map[string]Function{}}
	s.Register("echo", echoFunction)
	s.Register("sum", sumFunction)
	s.Register("fail", failFunction)
	s.Register("whoami", whoamiFunction(auth))
	return s
}

// Register adds or replaces the function called name.
func (s *FunctionService) Register(name string, fn Function) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funcs[name] = fn
}

// Names lists the registered functions, sorted.
func (s *FunctionService) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.funcs))
	for name := range s.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *FunctionService) Call(ctx context.Context, call FunctionCall) (any, error) {
	if call.Name == "" {
		return nil, fmt.Errorf("%w: name", ErrMissingParameter)
	}

	s.mu.RLock()
	fn, ok := s.funcs[call.Name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, call.Name)
	}

	if call.Args == nil {
		call.Args = []any{}
	}

	out, err := fn(ctx, call)
	if err != nil {
		slogx.FromContext(ctx).Debug("function failed", "name", call.Name, "user_id", call.UserID, "error", err)
		return nil, err
	}
	return out, nil
}

func echoFunction(_ context.Context, call FunctionCall) (any, error) {
	return call.Args, nil
}

func sumFunction(_ context.Context, call FunctionCall) (any, error) {
	var total float64
	for i, arg := range call.Args {
		n, ok := arg.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: argument %d is not a number", ErrFunctionExecution, i)
		}
		total += n
	}
	return total, nil
}

func failFunction(_ context.Context, call FunctionCall) (any, error) {
	msg := "function failed"
	if len(call.Args) > 0 {
		if s, ok := call.Args[0].(string); ok {
			msg = s
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrFunctionExecution, msg)
}

func whoamiFunction(auth *AuthService) Function {
	return func(ctx context.Context, call FunctionCall) (any, error) {
		if len(call.Args) > 0 {
			return nil, ErrArgumentsNotAllowed
		}

		profile, err := auth.Profile(ctx, call.UserID)
		if err != nil {
			return nil, err
		}

		providers := make([]string, 0, len(profile.Identities))
		for _, id := range profile.Identities {
			providers = append(providers, id.ProviderType)
		}
		return map[string]any{
			"user_id":   profile.User.ID,
			"providers": providers,
			"data":      profile.User.Data,
		}, nil
	}
}
