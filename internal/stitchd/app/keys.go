package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aussiebroadwan/stitch/pkg/cryptox"
	"github.com/aussiebroadwan/stitch/pkg/idx"
	"github.com/aussiebroadwan/stitch/pkg/jwtx"
)

// initSigningKey loads the signing key from cfg.SigningKeyFile or generates
// an ephemeral one, and publishes it in a fresh key set.
func initSigningKey(cfg Config, logger *slog.Logger) (jwtx.Signer, *jwtx.KeySet, error) {
	var pem []byte
	if cfg.SigningKeyFile != "" {
		b, err := os.ReadFile(cfg.SigningKeyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read signing key: %w", err)
		}
		pem = b
		logger.Info("signing key loaded", "path", cfg.SigningKeyFile)
	} else {
		b, err := cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, nil, err
		}
		pem = b
		logger.Warn("using an ephemeral signing key; tokens will not survive a restart")
	}

	signer, err := jwtx.NewSignerEdDSA(idx.NewString(), pem)
	if err != nil {
		return nil, nil, err
	}

	keys := jwtx.NewKeySet()
	if err := keys.AddSigner(signer); err != nil {
		return nil, nil, err
	}
	return signer, keys, nil
}
