package service

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/stitch/internal/stitchd/store/drivers/sqlite"
	"github.com/aussiebroadwan/stitch/pkg/cryptox"
	"github.com/aussiebroadwan/stitch/pkg/jwtx"
	"github.com/aussiebroadwan/stitch/pkg/slogx"
)

const testIssuer = "https://stitch.test"

var customSecret = []byte("custom-token-secret")

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type services struct {
	store    *sqlite.Store
	clock    *clock
	tokens   *TokenService
	auth     *AuthService
	keys     *APIKeyService
	verifier *jwtx.EdDSAVerifier
}

func newServices(t *testing.T) *services {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	pem, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("test-key", pem)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	clk := &clock{now: time.Now().UTC().Truncate(time.Millisecond)}
	tokens := &TokenService{
		Store:  st,
		Signer: signer,
		Issuer: testIssuer,
		Now:    clk.Now,
	}

	return &services{
		store:  st,
		clock:  clk,
		tokens: tokens,
		auth: &AuthService{
			Store:             st,
			Tokens:            tokens,
			Hasher:            cryptox.NewPasswordHasher("pepper"),
			CustomTokenSecret: customSecret,
		},
		keys:     &APIKeyService{Store: st, Tokens: tokens},
		verifier: jwtx.NewVerifierEdDSA(keys, testIssuer),
	}
}

func discardLogger() *slog.Logger { return slogx.Discard() }
