package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	defaultPath = "."

	DriverPebble = "pebble"
	DriverSQLite = "sqlite"

	defaultServiceName   = "addrstore"
	defaultLogLevel      = "info"
	defaultLogOutput     = "stderr"
	defaultDataDir       = "data"
	defaultCacheSize     = 1024
	defaultSlowThreshold = 200 * time.Millisecond
	defaultImportMax     = 32 << 20
	defaultSnapshotDir   = "snapshots"
	defaultSnapshotPre   = "backups/"
)

// ErrNotFound is returned when no config file exists in any search path.
var ErrNotFound = errors.New("config file not found")

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	Storage Storage `json:"storage" yaml:"storage"`

	Import Import `json:"import" yaml:"import"`

	// Snapshot configures where backups of the collection are written
	Snapshot Snapshot `json:"snapshot" yaml:"snapshot"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	// Output is "stderr" or "stdout"
	Output string `json:"output" yaml:"output" validate:"omitempty,oneof=stderr stdout"`
}

// Storage selects and tunes the embedded key-value medium
type Storage struct {
	// Driver is "pebble" (default) or "sqlite"
	Driver string `json:"driver" yaml:"driver" validate:"oneof=pebble sqlite"`

	// Path of the database directory (pebble) or file (sqlite)
	Path string `json:"path" yaml:"path"`

	// InMemory keeps the whole collection in memory, nothing survives the process
	InMemory bool `json:"inMemory" yaml:"inMemory"`

	// NoSync skips fsync on commit (pebble only)
	NoSync bool `json:"noSync" yaml:"noSync"`

	// CacheSize is the number of records kept by the lookup-by-ID cache
	CacheSize int `json:"cacheSize" yaml:"cacheSize" validate:"gte=0"`

	// SlowThreshold for logging slow SQL statements (sqlite only)
	SlowThreshold time.Duration `json:"slowThreshold" yaml:"slowThreshold"`
}

// Import bounds bulk imports
type Import struct {
	MaxBytes int64 `json:"maxBytes" yaml:"maxBytes" validate:"gte=0"`
}

// Snapshot configures the backup bucket
type Snapshot struct {
	// BucketURL is a gocloud.dev/blob URL, e.g. file:///var/backups or mem://
	BucketURL string `json:"bucketURL" yaml:"bucketURL"`

	// Prefix is prepended to every backup key
	Prefix string `json:"prefix" yaml:"prefix"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	configFile, err := findConfigFile(currEnv, configPath...)
	if err != nil {
		return nil, err
	}

	return load[T](currEnv, configFile)
}

// Load reads <name>.yaml from the search paths, overlays the environment and
// applies defaults. A missing file is not an error: the environment and the
// defaults are used alone.
func Load(name string, configPath ...string) (*Config, error) {
	configFile, err := findConfigFile(name, configPath...)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	cfg, err := load[Config](name, configFile)
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return cfg, nil
}

func New() (*Config, error) {
	return Load("config", "config", "../config", "../../config")
}

func findConfigFile(currEnv string, configPath ...string) (string, error) {
	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			if !filepath.IsAbs(path) {
				path = filepath.Join(pwd, path)
			}
			searchPaths = append(searchPaths, path)
		}
	}

	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", errors.Wrapf(ErrNotFound, "config file %s.yaml not found in any search path", currEnv)
}

// load decodes configFile (skipped when empty) overlaid with the environment.
func load[T any](currEnv, configFile string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	if configFile != "" {
		if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read %s config failed", currEnv)
		}
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: STORAGE_INMEMORY -> storage.inMemory (not storage.inmemory)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if strings.TrimSpace(cfg.Env.ServiceName) == "" {
		cfg.Env.ServiceName = defaultServiceName
	}
	if strings.TrimSpace(cfg.Env.Log.Level) == "" {
		cfg.Env.Log.Level = defaultLogLevel
	}
	if strings.TrimSpace(cfg.Env.Log.Output) == "" {
		cfg.Env.Log.Output = defaultLogOutput
	}

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverPebble
	}
	if strings.TrimSpace(cfg.Storage.Path) == "" {
		switch cfg.Storage.Driver {
		case DriverSQLite:
			cfg.Storage.Path = filepath.Join(defaultDataDir, "addresses.db")
		default:
			cfg.Storage.Path = filepath.Join(defaultDataDir, "addresses")
		}
	}
	if cfg.Storage.CacheSize == 0 {
		cfg.Storage.CacheSize = defaultCacheSize
	}
	if cfg.Storage.SlowThreshold == 0 {
		cfg.Storage.SlowThreshold = defaultSlowThreshold
	}

	if cfg.Import.MaxBytes == 0 {
		cfg.Import.MaxBytes = defaultImportMax
	}

	if cfg.Snapshot.Prefix == "" {
		cfg.Snapshot.Prefix = defaultSnapshotPre
	}
}

// SnapshotDir is the local directory used for backups when no bucket URL is set.
func (cfg *Config) SnapshotDir() string {
	return filepath.Join(filepath.Dir(cfg.Storage.Path), defaultSnapshotDir)
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}
