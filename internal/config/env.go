package config

import (
	"os"

	"github.com/joho/godotenv"
)

// loadDotEnv merges a dotenv file into the process environment. Real
// environment variables win over file values.
func loadDotEnv(path string) error {
	return godotenv.Load(path)
}

func loadDotEnvIfPresent(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = loadDotEnv(path)
}
