// Command stitch is a small client for a Stitch app. It logs in, switches
// between cached users, calls functions and manages API keys, keeping its user
// cache in the storage driver named by the profile.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/aussiebroadwan/stitch/pkg/slogx"
	"github.com/aussiebroadwan/stitch/pkg/stitch"
	"github.com/aussiebroadwan/stitch/pkg/stitchauth"
)

var version = "dev"

const usage = `usage: stitch [-config file] <command> [args]

commands:
  login [-link] anon
  login [-link] userpass <email> <password>
  login [-link] apikey <key>
  login [-link] custom <token>
  login [-link] -secret <hs256 secret> [-name n] [-email e] custom <subject>
  login [-link] function <json object>
  register <email> <password>
  whoami
  users
  switch <user id>
  logout [user id]
  remove [user id]
  refresh
  call <name> [json array of arguments]
  apikeys create <name> | list | get <id> | delete <id> | enable <id> | disable <id>
  health
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code. environ
// replaces the process environment when non nil.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, environ map[string]string) int {
	flags := flag.NewFlagSet("stitch", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := flags.String("config", defaultConfigPath(), "path to the YAML profile")

	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return 2
	}

	name := flags.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "stitch: unknown command %q\n\n", name)
		flags.Usage()
		return 2
	}

	profile, err := loadProfile(*configPath, environ)
	if err != nil {
		fmt.Fprintf(stderr, "stitch: %v\n", err)
		return 1
	}

	logger := slogx.New(slogx.Config{
		Service: "stitch",
		Version: version,
		Level:   profile.LogLevel,
		Format:  "text",
		Output:  stderr,
	})

	store, closeStore, err := openStorage(ctx, profile.Storage)
	if err != nil {
		logger.Error("failed to open storage", "driver", profile.Storage.Driver, "error", err)
		return 1
	}
	defer closeStore()

	client, err := stitch.NewClient(ctx, stitchauth.Config{
		AppID:   profile.AppID,
		BaseURL: profile.BaseURL,
		Storage: store,
		Device: stitchauth.DeviceInfo{
			AppVersion:      version,
			Platform:        runtime.GOOS,
			PlatformVersion: runtime.Version(),
			SDKVersion:      version,
		},
		Logger:           logger,
		DisableRefresher: true,
	})
	if err != nil {
		logger.Error("failed to load user cache", "error", err)
		return 1
	}
	defer client.Close()

	c := &cli{client: client, out: stdout}
	if err := cmd(ctx, c, flags.Args()[1:]); err != nil {
		var uerr usageError
		if errors.As(err, &uerr) {
			fmt.Fprintf(stderr, "stitch %s: %v\n\n", name, err)
			flags.Usage()
			return 2
		}
		fmt.Fprintf(stderr, "stitch %s: %v\n", name, err)
		return 1
	}
	return 0
}
