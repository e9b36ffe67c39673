package auth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}
	return key
}

func writePEM(t *testing.T, blockType string, der []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "key.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return path
}

func TestSignRequestVerifies(t *testing.T) {
	key := testKey(t)
	fixed := time.UnixMilli(1700000000123)
	creds := &Credentials{KeyID: "test-key-id", PrivateKey: key, now: func() time.Time { return fixed }}

	headers, err := creds.SignRequest("GET", "/trade-api/v2/markets")
	if err != nil {
		t.Fatalf("SignRequest failed: %v", err)
	}

	if headers[HeaderKey] != "test-key-id" {
		t.Errorf("%s = %q, want %q", HeaderKey, headers[HeaderKey], "test-key-id")
	}
	if headers[HeaderTimestamp] != "1700000000123" {
		t.Errorf("%s = %q, want %q", HeaderTimestamp, headers[HeaderTimestamp], "1700000000123")
	}

	sig, err := base64.StdEncoding.DecodeString(headers[HeaderSignature])
	if err != nil {
		t.Fatalf("signature is not base64: %v", err)
	}
	hashed := sha256.Sum256([]byte("1700000000123GET/trade-api/v2/markets"))
	opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash}
	if err := rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, hashed[:], sig, opts); err != nil {
		t.Errorf("signature does not verify: %v", err)
	}
}

func TestWebSocketHeader(t *testing.T) {
	creds := &Credentials{KeyID: "ws-key", PrivateKey: testKey(t)}

	h, err := creds.WebSocketHeader()
	if err != nil {
		t.Fatalf("WebSocketHeader failed: %v", err)
	}
	if h.Get(HeaderKey) != "ws-key" {
		t.Errorf("%s = %q, want ws-key", HeaderKey, h.Get(HeaderKey))
	}
	if h.Get(HeaderTimestamp) == "" || h.Get(HeaderSignature) == "" {
		t.Error("timestamp or signature header missing")
	}
}

func TestLoadPrivateKey(t *testing.T) {
	key := testKey(t)
	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal pkcs8: %v", err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"pkcs8", writePEM(t, "PRIVATE KEY", pkcs8)},
		{"pkcs1", writePEM(t, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadPrivateKey(tt.path)
			if err != nil {
				t.Fatalf("LoadPrivateKey failed: %v", err)
			}
			if !got.Equal(key) {
				t.Error("loaded key does not match")
			}
		})
	}
}

func TestLoadPrivateKeyErrors(t *testing.T) {
	if _, err := LoadPrivateKey(filepath.Join(t.TempDir(), "missing.pem")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := ParsePrivateKey([]byte("not a pem")); err == nil {
		t.Error("expected error for invalid PEM")
	}
}

func TestLoadCredentials(t *testing.T) {
	path := writePEM(t, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(testKey(t)))

	creds, err := LoadCredentials("my-key", path)
	if err != nil {
		t.Fatalf("LoadCredentials failed: %v", err)
	}
	if creds.KeyID != "my-key" || creds.PrivateKey == nil {
		t.Errorf("creds = %+v", creds)
	}

	if _, err := LoadCredentials("", path); err == nil {
		t.Error("expected error for missing key ID")
	}
	if _, err := LoadCredentials("my-key", ""); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestLoadOptional(t *testing.T) {
	creds, err := LoadOptional("", "")
	if err != nil || creds != nil {
		t.Errorf("LoadOptional(empty) = %v, %v, want nil, nil", creds, err)
	}
	if _, err := LoadOptional("id-only", ""); err == nil {
		t.Error("expected error when only key ID is set")
	}
}
