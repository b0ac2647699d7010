// Package device provides the identifier that debug-mode allow-lists match
// against.
package device

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// EnvOverride names the environment variable that replaces the stored id
const EnvOverride = "PIPELOG_DEVICE_ID"

const (
	dirName  = "pipelog"
	fileName = "device-id"
)

var (
	once   sync.Once
	cached string
)

// ID returns this machine's identifier. It honours EnvOverride, otherwise
// reads or creates a UUID under the user config directory. When nothing
// can be persisted an ephemeral id is used for the life of the process.
func ID() string {
	once.Do(func() {
		if v := strings.TrimSpace(os.Getenv(EnvOverride)); v != "" {
			cached = v
			return
		}
		dir, err := os.UserConfigDir()
		if err != nil {
			cached = uuid.NewString()
			return
		}
		cached, _ = Ensure(filepath.Join(dir, dirName))
	})
	return cached
}

// Ensure returns the id stored in dir, creating one if the file is
// missing or does not hold a UUID. The returned id is always usable; the
// error reports a failure to persist it.
func Ensure(dir string) (string, error) {
	path := filepath.Join(dir, fileName)
	if data, err := os.ReadFile(path); err == nil {
		if id, err := uuid.Parse(strings.TrimSpace(string(data))); err == nil {
			return id.String(), nil
		}
	}

	id := uuid.NewString()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return id, err
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return id, err
	}
	return id, nil
}
