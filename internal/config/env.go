package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

var envFiles = []string{".env", ".env.local"}

// loadEnvFiles sets variables from .env and .env.local in dir. Later files
// win over earlier ones; the process environment wins over both.
func loadEnvFiles(dir string) error {
	values := map[string]string{}
	for _, name := range envFiles {
		read, err := godotenv.Read(filepath.Join(dir, name))
		if stderrors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		for k, v := range read {
			values[k] = v
		}
	}
	for k, v := range values {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return err
		}
	}
	return nil
}
