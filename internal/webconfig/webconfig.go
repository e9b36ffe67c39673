// Package webconfig writes the browser's backend credentials module.
package webconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables read by FromEnv.
const (
	EnvURL = "VITE_SUPABASE_URL"
	EnvKey = "VITE_SUPABASE_KEY"
)

// DefaultDir is where the static site expects config.js.
const DefaultDir = "webapp/public"

// FileName is the generated module's name.
const FileName = "config.js"

// ErrMissing is returned when either credential is empty.
var ErrMissing = errors.New("Missing VITE_SUPABASE_URL or VITE_SUPABASE_KEY")

// Credentials are the values exported to the browser.
type Credentials struct {
	URL string
	Key string
}

// FromEnv reads credentials from the environment.
func FromEnv() (Credentials, error) {
	c := Credentials{URL: os.Getenv(EnvURL), Key: os.Getenv(EnvKey)}
	if c.URL == "" || c.Key == "" {
		return Credentials{}, ErrMissing
	}
	return c, nil
}

// Render returns the contents of config.js.
func Render(c Credentials) ([]byte, error) {
	url, err := literal(c.URL)
	if err != nil {
		return nil, err
	}
	key, err := literal(c.Key)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "export const SUPABASE_URL = %s;\n", url)
	fmt.Fprintf(&b, "export const SUPABASE_KEY = %s;\n", key)
	return b.Bytes(), nil
}

// literal encodes s as a JSON string without HTML escaping.
func literal(s string) (string, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", fmt.Errorf("encode literal: %w", err)
	}
	return string(bytes.TrimSuffix(b.Bytes(), []byte("\n"))), nil
}

// Write creates dir if needed and writes config.js into it, returning the
// file's path.
func Write(dir string, c Credentials) (string, error) {
	if c.URL == "" || c.Key == "" {
		return "", ErrMissing
	}
	content, err := Render(c)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
