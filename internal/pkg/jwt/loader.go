// internal/pkg/jwt/loader.go
package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Config struct {
	// PubPEM takes precedence over PubPath when both are set.
	PubPEM   string
	PubPath  string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// LoadVerifier reads the identity service's public key and builds a verifier.
func LoadVerifier(cfg Config) (*Verifier, error) {
	pub, err := loadPublicKey(cfg)
	if err != nil {
		return nil, err
	}

	v := NewVerifier(pub, cfg.Issuer, cfg.Audience)
	v.leeway = cfg.Leeway
	return v, nil
}

func loadPublicKey(cfg Config) (*rsa.PublicKey, error) {
	raw := []byte(cfg.PubPEM)
	if len(raw) == 0 {
		if cfg.PubPath == "" {
			return nil, errors.New("no jwt public key configured")
		}
		b, err := os.ReadFile(cfg.PubPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read public key from %s: %w", cfg.PubPath, err)
		}
		raw = b
	}

	// accepts PKIX, PKCS1 and certificate blocks
	pub, err := jwt.ParseRSAPublicKeyFromPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return pub, nil
}
