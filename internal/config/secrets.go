package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Secret environment variables. They never live in the config file.
const (
	EnvESAAccessToken  = "ESA_ACCESS_TOKEN"
	EnvKibelaSessionID = "KIBELA_SESSION_ID"
)

// DefaultEnvFile is read when present and no other file is named.
const DefaultEnvFile = ".env"

// Secrets holds credentials read from the environment.
type Secrets struct {
	ESAAccessToken  string
	KibelaSessionID string
}

// LoadSecrets loads envFile into the process environment, then reads the
// secret variables. Variables already set are not overridden. An empty
// envFile loads DefaultEnvFile if it exists; a named file must exist.
func LoadSecrets(envFile string) (Secrets, error) {
	path := envFile
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if envFile != "" || !errors.Is(err, fs.ErrNotExist) {
			return Secrets{}, fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return Secrets{
		ESAAccessToken:  os.Getenv(EnvESAAccessToken),
		KibelaSessionID: os.Getenv(EnvKibelaSessionID),
	}, nil
}

// Missing names the variables a run needs but does not have. Dry runs make
// no destination calls and need none. The session id is optional: without
// it wiki links are left unresolved.
func (s Secrets) Missing(dryRun bool) []string {
	if dryRun || s.ESAAccessToken != "" {
		return nil
	}
	return []string{EnvESAAccessToken}
}
