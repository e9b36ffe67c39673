// genconfig writes the browser's config.js from VITE_SUPABASE_URL and
// VITE_SUPABASE_KEY.
//
// Usage: go run ./cmd/genconfig [-dir webapp/public]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/rickgao/prediction-pulse/internal/webconfig"
)

func main() {
	dir := flag.String("dir", webconfig.DefaultDir, "output directory")
	flag.Parse()

	_ = godotenv.Load()

	creds, err := webconfig.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	path, err := webconfig.Write(*dir, creds)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to write config:", err)
		os.Exit(1)
	}
	fmt.Println("Wrote", path)
}
