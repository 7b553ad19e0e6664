package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFunctionService(t *testing.T) {
	t.Parallel()
	s := newServices(t)
	ctx := t.Context()
	fns := NewFunctionService(s.auth)

	user, err := s.auth.Login(ctx, LoginRequest{Provider: ProviderAnonymous})
	require.NoError(t, err)

	require.Equal(t, []string{"echo", "fail", "sum", "whoami"}, fns.Names())

	tests := []struct {
		name    string
		call    FunctionCall
		want    any
		wantErr error
	}{
		{name: "echo", call: FunctionCall{Name: "echo", Args: []any{"a", 1.0}}, want: []any{"a", 1.0}},
		{name: "echo without args", call: FunctionCall{Name: "echo"}, want: []any{}},
		{name: "sum", call: FunctionCall{Name: "sum", Args: []any{1.0, 2.5}}, want: 3.5},
		{name: "sum of strings", call: FunctionCall{Name: "sum", Args: []any{"x"}}, wantErr: ErrFunctionExecution},
		{name: "fail", call: FunctionCall{Name: "fail", Args: []any{"boom"}}, wantErr: ErrFunctionExecution},
		{name: "whoami with args", call: FunctionCall{Name: "whoami", UserID: user.UserID, Args: []any{1.0}}, wantErr: ErrArgumentsNotAllowed},
		{name: "unknown", call: FunctionCall{Name: "nope"}, wantErr: ErrFunctionNotFound},
		{name: "no name", call: FunctionCall{}, wantErr: ErrMissingParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fns.Call(ctx, tt.call)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	t.Run("whoami", func(t *testing.T) {
		got, err := fns.Call(ctx, FunctionCall{Name: "whoami", UserID: user.UserID})
		require.NoError(t, err)
		m := got.(map[string]any)
		require.Equal(t, user.UserID, m["user_id"])
		require.Equal(t, []string{ProviderAnonymous}, m["providers"])
	})

	t.Run("register", func(t *testing.T) {
		fns.Register("double", func(_ context.Context, call FunctionCall) (any, error) {
			return call.Args[0].(float64) * 2, nil
		})
		got, err := fns.Call(ctx, FunctionCall{Name: "double", Args: []any{21.0}})
		require.NoError(t, err)
		require.Equal(t, 42.0, got)
	})
}
