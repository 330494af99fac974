package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/wippyai/wasm-windowing/errors"
)

// EnvPrefix prefixes every environment override, e.g. WINDOWHOST_LOOP_PERIOD.
const EnvPrefix = "WINDOWHOST"

// Config holds host configuration.
type Config struct {
	Guest  GuestConfig  `mapstructure:"guest"`
	Log    LogConfig    `mapstructure:"log"`
	Window WindowConfig `mapstructure:"window"`
	WASI   WASIConfig   `mapstructure:"wasi"`
	Loop   LoopConfig   `mapstructure:"loop"`
	Table  TableConfig  `mapstructure:"table"`
}

// GuestConfig locates guest modules by name.
type GuestConfig struct {
	BuildDir string `mapstructure:"build_dir"`
	Target   string `mapstructure:"target"`
	Profile  string `mapstructure:"profile"`
}

// LoopConfig holds event loop settings.
type LoopConfig struct {
	Period time.Duration `mapstructure:"period"`
}

// WindowConfig is the geometry of every window handed to the guest.
type WindowConfig struct {
	Title  string `mapstructure:"title"`
	X      int    `mapstructure:"x"`
	Y      int    `mapstructure:"y"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
}

// TableConfig bounds the window handle table.
type TableConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// WASIConfig is the environment the guest sees. Env entries are KEY=VALUE
// and preopens are HOST:GUEST, as lists because viper folds map keys to
// lower case.
type WASIConfig struct {
	Env      []string `mapstructure:"env"`
	Preopens []string `mapstructure:"preopens"`
	Args     []string `mapstructure:"args"`
	// InheritStdio writes guest stdout and stderr to the host's.
	InheritStdio bool `mapstructure:"inherit_stdio"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
	File     string `mapstructure:"file"`
}

// Path returns the configuration file location: WINDOWHOST_CONFIG, or
// config.toml under the user's config directory.
func Path() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "windowhost", "config.toml")
}

// Load reads configuration from defaults, an optional TOML file and env.
// A missing file is not an error unless WINDOWHOST_CONFIG names it.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	explicit := os.Getenv(EnvPrefix+"_CONFIG") != ""
	if explicit {
		v.SetConfigFile(Path())
	} else {
		v.AddConfigPath(filepath.Dir(Path()))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !stderrors.As(err, &notFound) {
			return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "read config")
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "unmarshal config")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("guest.build_dir", filepath.Join("..", "example-apps"))
	v.SetDefault("guest.target", "wasm32-wasi")
	v.SetDefault("guest.profile", "release")
	v.SetDefault("loop.period", 16*time.Millisecond)
	v.SetDefault("window.title", "wasm window")
	v.SetDefault("window.x", 100)
	v.SetDefault("window.y", 100)
	v.SetDefault("window.width", 100)
	v.SetDefault("window.height", 100)
	v.SetDefault("table.capacity", 1024)
	v.SetDefault("wasi.inherit_stdio", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "")
	v.SetDefault("log.file", "")
}

// Validate rejects settings the host cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Loop.Period <= 0:
		return invalid("loop.period must be positive, got %s", c.Loop.Period)
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return invalid("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	case c.Table.Capacity <= 0:
		return invalid("table.capacity must be positive, got %d", c.Table.Capacity)
	}
	if _, err := c.WASI.Environ(); err != nil {
		return err
	}
	if _, err := c.WASI.PreopenDirs(); err != nil {
		return err
	}
	switch c.Log.Encoding {
	case "", "console", "json":
	default:
		return invalid("log.encoding must be console or json, got %q", c.Log.Encoding)
	}
	return nil
}

// Environ parses Env into a map.
func (w WASIConfig) Environ() (map[string]string, error) {
	return pairs("wasi.env", w.Env, "=")
}

// PreopenDirs parses Preopens into a guest path to host path map.
func (w WASIConfig) PreopenDirs() (map[string]string, error) {
	byHost, err := pairs("wasi.preopens", w.Preopens, ":")
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(byHost))
	for hostDir, guestDir := range byHost {
		out[guestDir] = hostDir
	}
	return out, nil
}

func pairs(key string, entries []string, sep string) (map[string]string, error) {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		k, v, ok := strings.Cut(e, sep)
		if !ok || k == "" {
			return nil, invalid("%s entry %q must be of the form a%sb", key, e, sep)
		}
		out[k] = v
	}
	return out, nil
}

// GuestPath resolves a guest name to its module under the build tree:
// <build_dir>/<name>/target/<target>/<profile>/<name>.wasm.
func (c Config) GuestPath(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("invalid guest name %q", name))
	}
	return filepath.Join(c.Guest.BuildDir, name, "target", c.Guest.Target, c.Guest.Profile, name+".wasm"), nil
}

func invalid(format string, args ...any) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).Detail(format, args...).Build()
}
