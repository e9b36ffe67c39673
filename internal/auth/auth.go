// Package auth signs Kalshi API requests with RSA-PSS.
package auth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Header names set on signed requests.
const (
	HeaderKey       = "KALSHI-ACCESS-KEY"
	HeaderTimestamp = "KALSHI-ACCESS-TIMESTAMP"
	HeaderSignature = "KALSHI-ACCESS-SIGNATURE"
)

// WebSocketPath is the path used for WebSocket signature generation.
const WebSocketPath = "/trade-api/ws/v2"

// Credentials holds the API key and private key for signing requests.
type Credentials struct {
	KeyID      string          // API key ID from the Kalshi dashboard
	PrivateKey *rsa.PrivateKey // RSA private key for signing

	now func() time.Time
}

// LoadCredentials loads credentials from key ID and private key file path.
func LoadCredentials(keyID, privateKeyPath string) (*Credentials, error) {
	if keyID == "" {
		return nil, errors.New("API key ID is required")
	}
	if privateKeyPath == "" {
		return nil, errors.New("private key path is required")
	}

	privateKey, err := LoadPrivateKey(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}

	return &Credentials{
		KeyID:      keyID,
		PrivateKey: privateKey,
	}, nil
}

// LoadOptional is LoadCredentials for callers that may run unsigned: it
// returns nil, nil when neither value is set.
func LoadOptional(keyID, privateKeyPath string) (*Credentials, error) {
	if keyID == "" && privateKeyPath == "" {
		return nil, nil
	}
	return LoadCredentials(keyID, privateKeyPath)
}

// LoadPrivateKey loads an RSA private key from a PEM file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return ParsePrivateKey(data)
}

// ParsePrivateKey decodes a PKCS#8 or PKCS#1 PEM-encoded RSA key.
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("key is not an RSA private key")
		}
		return rsaKey, nil
	}

	rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return rsaKey, nil
}

// SignRequest generates authentication headers for a Kalshi API request.
// path is the full URL path, e.g. "/trade-api/v2/markets".
func (c *Credentials) SignRequest(method, path string) (map[string]string, error) {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	timestampMs := now().UnixMilli()

	signature, err := c.sign(timestampMs, method, path)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		HeaderKey:       c.KeyID,
		HeaderTimestamp: strconv.FormatInt(timestampMs, 10),
		HeaderSignature: signature,
	}, nil
}

// sign creates an RSA-PSS signature over timestamp_ms + method + path.
func (c *Credentials) sign(timestampMs int64, method, path string) (string, error) {
	hashed := sha256.Sum256([]byte(Message(timestampMs, method, path)))

	signature, err := rsa.SignPSS(
		rand.Reader,
		c.PrivateKey,
		crypto.SHA256,
		hashed[:],
		&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash},
	)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}

	return base64.StdEncoding.EncodeToString(signature), nil
}

// Message is the string that gets signed.
func Message(timestampMs int64, method, path string) string {
	return strconv.FormatInt(timestampMs, 10) + method + path
}

// WebSocketHeader returns signed handshake headers for the streaming API.
func (c *Credentials) WebSocketHeader() (http.Header, error) {
	headers, err := c.SignRequest(http.MethodGet, WebSocketPath)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return h, nil
}
