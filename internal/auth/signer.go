// Package auth produces the signed-request triple the venue requires on
// every REST and streaming-upgrade call.
package auth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mselser95/kalshi-arb/pkg/venueerrors"
)

// Signer produces RSA-PSS/SHA-256 signatures over
// timestamp||method||path_without_query, as required by the venue's
// KALSHI-ACCESS-* header scheme.
type Signer struct {
	apiKeyID string
	key      *rsa.PrivateKey
}

// NewSigner parses a PEM-encoded RSA private key and binds it to apiKeyID.
// Returns a *venueerrors.ConfigurationError if the key is not RSA or cannot
// be parsed; the Signer is infallible at runtime thereafter.
func NewSigner(apiKeyID string, pemBytes []byte) (*Signer, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, &venueerrors.ConfigurationError{Field: "private_key_path", Message: "no PEM block found"}
	}

	key, err := parseRSAKey(block.Bytes)
	if err != nil {
		return nil, &venueerrors.ConfigurationError{Field: "private_key_path", Message: err.Error()}
	}

	return &Signer{apiKeyID: apiKeyID, key: key}, nil
}

func parseRSAKey(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}

	return rsaKey, nil
}

// Signature is the triple sent as headers on every authenticated call.
type Signature struct {
	APIKeyID  string
	TimestampMS int64
	Value     string // base64-encoded
}

// Sign produces a fresh Signature for method/rawPath at the current time.
// Only the path component of rawPath is signed; any query string is
// stripped, so a signature for "/markets?status=open" is identical to one
// for "/markets" at the same timestamp.
func (s *Signer) Sign(method, rawPath string) (Signature, error) {
	return s.signAt(method, rawPath, time.Now())
}

func (s *Signer) signAt(method, rawPath string, now time.Time) (Signature, error) {
	path := stripQuery(rawPath)
	tsMS := now.UnixMilli()

	payload := fmt.Sprintf("%d%s%s", tsMS, strings.ToUpper(method), path)

	digest := sha256.Sum256([]byte(payload))

	sig, err := rsa.SignPSS(rand.Reader, s.key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return Signature{}, fmt.Errorf("sign pss: %w", err)
	}

	return Signature{
		APIKeyID:    s.apiKeyID,
		TimestampMS: tsMS,
		Value:       base64.StdEncoding.EncodeToString(sig),
	}, nil
}

func stripQuery(rawPath string) string {
	if u, err := url.Parse(rawPath); err == nil {
		return u.Path
	}
	if idx := strings.IndexByte(rawPath, '?'); idx >= 0 {
		return rawPath[:idx]
	}
	return rawPath
}
