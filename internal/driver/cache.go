package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"cursive0/internal/project"
)

// cacheDir/cacheFile hold the per-project module cache: content hashes,
// object paths and per-module timings from the last run. The driver
// writes it after each run and reads nothing from it back. This is
// diagnostic tooling, not incremental recompilation.
const cacheDir = ".cursive-cache"
const cacheFile = "modules.msgpack"

// ModuleCache is the persisted shape.
type ModuleCache struct {
	Session   string                 `msgpack:"session"`
	WrittenAt time.Time              `msgpack:"written_at"`
	Modules   map[string]ModuleEntry `msgpack:"modules"`
}

// ModuleEntry is one module's fingerprint.
type ModuleEntry struct {
	Hash       string        `msgpack:"hash"`
	ObjectPath string        `msgpack:"object_path"`
	ParseTime  time.Duration `msgpack:"parse_time"`
}

// LoadCache reads the previous run's cache; a missing or corrupt file
// yields an empty cache (never an error — the cache is advisory).
func LoadCache(projectRoot string) *ModuleCache {
	c := &ModuleCache{Modules: make(map[string]ModuleEntry)}
	raw, err := os.ReadFile(filepath.Join(projectRoot, cacheDir, cacheFile))
	if err != nil {
		return c
	}
	if err := msgpack.Unmarshal(raw, c); err != nil {
		return &ModuleCache{Modules: make(map[string]ModuleEntry)}
	}
	return c
}

// Save writes the cache with a fresh session id, so concurrent builds
// against the same tree never interleave entries.
func (c *ModuleCache) Save(projectRoot string) error {
	c.Session = uuid.NewString()
	c.WrittenAt = time.Now()
	dir := filepath.Join(projectRoot, cacheDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	raw, err := msgpack.Marshal(c)
	if err != nil {
		return err
	}
	tmp := filepath.Join(dir, cacheFile+"."+c.Session[:8])
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, cacheFile))
}

// Record fingerprints one module's inputs.
func (c *ModuleCache) Record(asm *project.Assembly, m project.ModuleInfo, parseTime time.Duration) {
	h := sha256.New()
	for _, path := range m.Files {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		h.Write([]byte(path))
		h.Write(raw)
	}
	c.Modules[m.PathKey] = ModuleEntry{
		Hash:       hex.EncodeToString(h.Sum(nil)),
		ObjectPath: asm.ObjectPath(m.PathKey),
		ParseTime:  parseTime,
	}
}
