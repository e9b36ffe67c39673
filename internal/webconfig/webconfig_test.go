package webconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		in   Credentials
		want string
	}{
		{
			name: "plain",
			in:   Credentials{URL: "https://abc.supabase.co", Key: "anon-key"},
			want: "export const SUPABASE_URL = \"https://abc.supabase.co\";\nexport const SUPABASE_KEY = \"anon-key\";\n",
		},
		{
			name: "quotes and html",
			in:   Credentials{URL: "https://x.test/?a=1&b=<2>", Key: `k"ey`},
			want: "export const SUPABASE_URL = \"https://x.test/?a=1&b=<2>\";\nexport const SUPABASE_KEY = \"k\\\"ey\";\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.in)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "webapp", "public")

	path, err := Write(dir, Credentials{URL: "u", Key: "k"})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if path != filepath.Join(dir, "config.js") {
		t.Errorf("path = %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "export const SUPABASE_URL = \"u\";\nexport const SUPABASE_KEY = \"k\";\n"
	if string(data) != want {
		t.Errorf("content = %q, want %q", data, want)
	}
}

func TestWriteMissing(t *testing.T) {
	dir := t.TempDir()
	if _, err := Write(dir, Credentials{URL: "u"}); !errors.Is(err, ErrMissing) {
		t.Errorf("Write() error = %v, want ErrMissing", err)
	}
	if _, err := os.Stat(filepath.Join(dir, FileName)); !os.IsNotExist(err) {
		t.Error("config.js written despite missing key")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvURL, "https://abc.supabase.co")
	t.Setenv(EnvKey, "")

	if _, err := FromEnv(); !errors.Is(err, ErrMissing) {
		t.Errorf("FromEnv() error = %v, want ErrMissing", err)
	}

	t.Setenv(EnvKey, "anon")
	c, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if c.URL != "https://abc.supabase.co" || c.Key != "anon" {
		t.Errorf("FromEnv() = %+v", c)
	}
	if ErrMissing.Error() != "Missing VITE_SUPABASE_URL or VITE_SUPABASE_KEY" {
		t.Errorf("ErrMissing = %q", ErrMissing)
	}
}
