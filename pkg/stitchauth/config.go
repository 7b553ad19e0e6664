package stitchauth

import (
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/aussiebroadwan/stitch/pkg/storage"
)

const (
	// DefaultRefreshWindow is how long before expiry an access token is
	// refreshed in the background.
	DefaultRefreshWindow = 300 * time.Second

	// DefaultRefreshInterval is how often the refresher checks.
	DefaultRefreshInterval = 60 * time.Second

	// SDKVersion is reported to the server in the device info.
	SDKVersion = "0.1.0"
)

// DeviceInfo is client metadata sent with every login and link request.
// The device id itself comes from the server and is tracked in AuthInfo.
type DeviceInfo struct {
	AppVersion      string
	Platform        string
	PlatformVersion string
	SDKVersion      string
}

// Metrics receives client side auth telemetry. pkg/metrics provides a
// Prometheus implementation.
type Metrics interface {
	RecordLogin(providerType string, success bool)
	RecordRefresh(success bool)
	RecordRetry()
	RecordRequest(method string, statusCode int, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordLogin(string, bool)                 {}
func (noopMetrics) RecordRefresh(bool)                       {}
func (noopMetrics) RecordRetry()                             {}
func (noopMetrics) RecordRequest(string, int, time.Duration) {}

// Config configures an Auth. AppID and BaseURL are required.
type Config struct {
	AppID string

	// BaseURL is the server root, e.g. http://localhost:8080.
	BaseURL string

	// Storage holds the persisted user cache. Keys are namespaced per AppID.
	// Defaults to in-memory storage.
	Storage storage.Storage

	// HTTPClient defaults to a client with a 30 second timeout.
	HTTPClient *http.Client

	Device DeviceInfo

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	Metrics Metrics

	// DisableRefresher turns off background token refresh. One-shot tools and
	// tests set it.
	DisableRefresher bool
	RefreshWindow    time.Duration
	RefreshInterval  time.Duration

	// Now is the clock, overridable in tests.
	Now func() time.Time

	// OnAuthEvent is called after every committed state change.
	OnAuthEvent func(Event)
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if c.Storage == nil {
		c.Storage = storage.NewMemory()
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.Device.Platform == "" {
		c.Device.Platform = runtime.GOOS
	}
	if c.Device.PlatformVersion == "" {
		c.Device.PlatformVersion = runtime.Version()
	}
	if c.Device.SDKVersion == "" {
		c.Device.SDKVersion = SDKVersion
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Metrics == nil {
		c.Metrics = noopMetrics{}
	}
	if c.RefreshWindow <= 0 {
		c.RefreshWindow = DefaultRefreshWindow
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
