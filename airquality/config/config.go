package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config carries everything a run needs: one API key and one ordered
// device-id list per vendor. Empty lists are valid and skip that vendor.
type Config struct {
	AwairAPIKey       string
	AwairDeviceIDs    []string
	KaiterraAPIKey    string
	KaiterraDeviceIDs []string
}

// Load reads configuration from the env file at path. A missing file is
// fatal to the run, with a hint pointing at the shipped template.
func Load(path string) (Config, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return Config{}, errors.Errorf("%s not found - copy .env.example to %s and fill in your API keys and device ids", path, path)
		}
		return Config{}, errors.Wrapf(err, "failed to read %s", path)
	}

	return Config{
		AwairAPIKey:       env["AWAIR_API_KEY"],
		AwairDeviceIDs:    splitIDs(env["AWAIR_DEVICE_IDS"]),
		KaiterraAPIKey:    env["KAITERRA_API_KEY"],
		KaiterraDeviceIDs: splitIDs(env["KAITERRA_DEVICE_IDS"]),
	}, nil
}

// splitIDs parses a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitIDs(raw string) []string {
	ids := []string{}
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
