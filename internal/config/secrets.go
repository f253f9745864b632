package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// SecretsFile is the dotenv file that receives secrets written by the CLI.
const SecretsFile = ".env.local"

// SaveSecret writes key=value into the dotenv file at path, updating an
// existing entry in place.
func SaveSecret(path, key, value string) error {
	env := map[string]string{}
	if existing, err := godotenv.Read(path); err == nil {
		env = existing
	}
	env[key] = value
	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return os.Chmod(path, 0o600)
}

// DeleteSecret removes key from the dotenv file at path.
func DeleteSecret(path, key string) error {
	existing, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	delete(existing, key)
	if err := godotenv.Write(existing, path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
