package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/stitch/pkg/jwtx"
	"github.com/aussiebroadwan/stitch/pkg/stitch"
	"github.com/aussiebroadwan/stitch/pkg/stitchauth"
)

type command func(ctx context.Context, c *cli, args []string) error

var commands = map[string]command{
	"login":    cmdLogin,
	"register": cmdRegister,
	"whoami":   cmdWhoami,
	"users":    cmdUsers,
	"switch":   cmdSwitch,
	"logout":   cmdLogout,
	"remove":   cmdRemove,
	"refresh":  cmdRefresh,
	"call":     cmdCall,
	"apikeys":  cmdAPIKeys,
	"health":   cmdHealth,
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

type cli struct {
	client *stitch.Client
	out    io.Writer
}

func (c *cli) auth() *stitchauth.Auth { return c.client.Auth() }

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type userView struct {
	ID               string                  `json:"id"`
	DeviceID         string                  `json:"device_id,omitempty"`
	Provider         string                  `json:"provider,omitempty"`
	LoggedIn         bool                    `json:"logged_in"`
	Active           bool                    `json:"active"`
	LastAuthActivity time.Time               `json:"last_auth_activity,omitzero"`
	Profile          *stitchauth.UserProfile `json:"profile,omitempty"`
}

func (c *cli) view(u *stitchauth.User) userView {
	active := c.auth().User()
	return userView{
		ID:               u.ID,
		DeviceID:         u.DeviceID,
		Provider:         u.LoggedInProviderType,
		LoggedIn:         u.IsLoggedIn,
		Active:           active != nil && active.ID == u.ID,
		LastAuthActivity: u.LastAuthActivity,
		Profile:          u.Profile,
	}
}

func cmdLogin(ctx context.Context, c *cli, args []string) error {
	flags := flag.NewFlagSet("login", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	link := flags.Bool("link", false, "link the identity to the active user")
	secret := flags.String("secret", "", "mint the custom token with this HS256 secret")
	name := flags.String("name", "", "name claim of a minted custom token")
	email := flags.String("email", "", "email claim of a minted custom token")
	ttl := flags.Duration("ttl", 5*time.Minute, "lifetime of a minted custom token")
	if err := flags.Parse(args); err != nil {
		return usagef("%v", err)
	}
	if flags.NArg() == 0 {
		return usagef("missing provider")
	}

	provider, rest := flags.Arg(0), flags.Args()[1:]
	var cred stitchauth.Credential
	switch {
	case provider == "anon" && len(rest) == 0:
		cred = stitchauth.AnonymousCredential()
	case provider == "userpass" && len(rest) == 2:
		cred = stitchauth.UserPasswordCredential(rest[0], rest[1])
	case provider == "apikey" && len(rest) == 1:
		cred = stitchauth.UserAPIKeyCredential(rest[0])
	case provider == "custom" && len(rest) == 1:
		token := rest[0]
		if *secret != "" {
			var err error
			token, err = mintCustomToken(rest[0], *name, *email, *secret, *ttl)
			if err != nil {
				return err
			}
		}
		cred = stitchauth.CustomCredential(token)
	case provider == "function" && len(rest) == 1:
		var payload map[string]any
		if err := json.Unmarshal([]byte(rest[0]), &payload); err != nil {
			return usagef("function payload must be a JSON object: %v", err)
		}
		cred = stitchauth.FunctionCredential(payload)
	default:
		return usagef("bad arguments for provider %q", provider)
	}

	var (
		user *stitchauth.User
		err  error
	)
	if *link {
		user, err = c.auth().LinkUserWithCredential(ctx, c.auth().User(), cred)
	} else {
		user, err = c.auth().LoginWithCredential(ctx, cred)
	}
	if err != nil {
		return err
	}
	return c.printJSON(c.view(user))
}

func mintCustomToken(subject, name, email, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	return jwtx.SignHS256(jwtx.CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:  name,
		Email: email,
	}, []byte(secret))
}

func cmdRegister(ctx context.Context, c *cli, args []string) error {
	if len(args) != 2 {
		return usagef("register takes an email and a password")
	}
	if err := c.client.UserPassword().Register(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "registered %s\n", args[0])
	return nil
}

func cmdWhoami(_ context.Context, c *cli, args []string) error {
	if len(args) != 0 {
		return usagef("whoami takes no arguments")
	}
	user := c.auth().User()
	if user == nil {
		return errors.New("no active user")
	}
	return c.printJSON(c.view(user))
}

func cmdUsers(_ context.Context, c *cli, args []string) error {
	if len(args) != 0 {
		return usagef("users takes no arguments")
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROVIDER\tLOGGED IN\tACTIVE\tLAST ACTIVITY")
	for _, u := range c.auth().ListUsers() {
		v := c.view(&u)
		last := "-"
		if !v.LastAuthActivity.IsZero() {
			last = v.LastAuthActivity.Local().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%s\n", v.ID, v.Provider, v.LoggedIn, v.Active, last)
	}
	return tw.Flush()
}

func cmdSwitch(ctx context.Context, c *cli, args []string) error {
	if len(args) != 1 {
		return usagef("switch takes a user id")
	}
	user, err := c.auth().SwitchToUserWithID(ctx, args[0])
	if err != nil {
		return err
	}
	return c.printJSON(c.view(user))
}

func cmdLogout(ctx context.Context, c *cli, args []string) error {
	switch len(args) {
	case 0:
		return c.auth().Logout(ctx)
	case 1:
		return c.auth().LogoutUserWithID(ctx, args[0])
	}
	return usagef("logout takes at most one user id")
}

func cmdRemove(ctx context.Context, c *cli, args []string) error {
	switch len(args) {
	case 0:
		return c.auth().RemoveUser(ctx)
	case 1:
		return c.auth().RemoveUserWithID(ctx, args[0])
	}
	return usagef("remove takes at most one user id")
}

func cmdRefresh(ctx context.Context, c *cli, args []string) error {
	if len(args) != 0 {
		return usagef("refresh takes no arguments")
	}
	if err := c.auth().RefreshAccessToken(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "access token refreshed")
	return nil
}

func cmdCall(ctx context.Context, c *cli, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return usagef("call takes a function name and an optional JSON array")
	}

	var fnArgs []any
	if len(args) == 2 {
		if err := json.Unmarshal([]byte(args[1]), &fnArgs); err != nil {
			return usagef("arguments must be a JSON array: %v", err)
		}
	}

	var result any
	if err := c.client.CallFunction(ctx, args[0], fnArgs, &result); err != nil {
		return err
	}
	return c.printJSON(result)
}

func cmdAPIKeys(ctx context.Context, c *cli, args []string) error {
	if len(args) == 0 {
		return usagef("missing apikeys subcommand")
	}
	keys := c.client.UserAPIKeys()

	sub, rest := args[0], args[1:]
	if sub == "list" {
		if len(rest) != 0 {
			return usagef("apikeys list takes no arguments")
		}
		list, err := keys.List(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tDISABLED")
		for _, k := range list {
			fmt.Fprintf(tw, "%s\t%s\t%t\n", k.ID, k.Name, k.Disabled)
		}
		return tw.Flush()
	}

	if len(rest) != 1 {
		return usagef("apikeys %s takes one argument", sub)
	}
	switch sub {
	case "create":
		key, err := keys.Create(ctx, rest[0])
		if err != nil {
			return err
		}
		return c.printJSON(key)
	case "get":
		key, err := keys.Fetch(ctx, rest[0])
		if err != nil {
			return err
		}
		return c.printJSON(key)
	case "delete":
		return keys.Delete(ctx, rest[0])
	case "enable":
		return keys.Enable(ctx, rest[0])
	case "disable":
		return keys.Disable(ctx, rest[0])
	}
	return usagef("unknown apikeys subcommand %q", sub)
}

func cmdHealth(ctx context.Context, c *cli, args []string) error {
	if len(args) != 0 {
		return usagef("health takes no arguments")
	}
	resp, err := c.client.Readyz(ctx)
	if err != nil {
		return err
	}
	return c.printJSON(resp)
}
