package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment markers selecting CI mode. Either is sufficient.
const (
	envCI            = "CI"
	envBookbuilderCI = "BOOKBUILDER_CI"
)

// loadEnvFiles loads environment variables from .env/.env.local files.
// It attempts each supported filename in order and stops at the first
// successfully parsed file. Existing process environment is never overwritten.
func loadEnvFiles() {
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err == nil {
			fmt.Fprintf(os.Stderr, "Loaded environment variables from %s\n", envPath)
			return
		}
	}
}

// IsCI reports whether a continuous-integration environment marker is set.
func IsCI() bool {
	return isTruthy(os.Getenv(envCI)) || isTruthy(os.Getenv(envBookbuilderCI))
}

func isTruthy(v string) bool {
	switch v {
	case "", "0", "false", "FALSE", "False", "no":
		return false
	}
	return true
}
