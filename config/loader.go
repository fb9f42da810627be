package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix is the prefix of every override variable, e.g.
// MAESTRO_L1_MAX_ATTEMPTS, MAESTRO_L2_MAX_ATTEMPTS, MAESTRO_STATE_DIR,
// MAESTRO_CHECKPOINT_DIR, MAESTRO_TOKEN_LIMIT.
const DefaultEnvPrefix = "MAESTRO"

// Loader builds a Config with the precedence
// defaults -> YAML file -> environment variables.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("maestro.yaml").
//	    Load()
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a Loader with the MAESTRO env prefix and no file.
func NewLoader() *Loader {
	return &Loader{envPrefix: DefaultEnvPrefix}
}

// WithConfigPath sets an optional YAML file. A missing file is not an
// error; defaults are used.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load builds the Config. Environment overrides are read exactly once,
// here; the returned value never changes afterwards.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := l.loadFromFile(cfg); err != nil {
		return nil, err
	}
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	return cfg, nil
}

// New builds a Config from defaults and environment only.
func New() (*Config, error) {
	return NewLoader().Load()
}

func (l *Loader) loadFromFile(cfg *Config) error {
	if l.configPath == "" {
		return nil
	}

	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv walks the struct recursively, joining non-empty env
// tags with "_". An empty env tag on a struct field keeps the parent
// prefix, which is how StateConfig fields map to MAESTRO_STATE_DIR
// rather than MAESTRO_STATE_STATE_DIR.
func setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag, ok := fieldType.Tag.Lookup("env")
		if !ok || envTag == "-" {
			continue
		}

		envKey := prefix
		if envTag != "" {
			envKey = prefix + "_" + envTag
		}

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Time{}) {
			if err := setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field kind: %s", field.Kind())
	}

	return nil
}

// envKeyFor reports the full environment variable name for a dotted
// field path like "level1.max_attempts". Used by audit tooling and
// tests; returns "" for unknown paths.
func envKeyFor(path, prefix string) string {
	parts := strings.SplitN(path, ".", 2)
	if len(parts) != 2 {
		return ""
	}

	cfg := Config{}
	v := reflect.ValueOf(cfg)
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("yaml") != parts[0] {
			continue
		}
		sub := prefix
		if tag := t.Field(i).Tag.Get("env"); tag != "" {
			sub = prefix + "_" + tag
		}
		st := t.Field(i).Type
		for j := 0; j < st.NumField(); j++ {
			if yamlName(st.Field(j).Tag.Get("yaml")) == parts[1] {
				return sub + "_" + st.Field(j).Tag.Get("env")
			}
		}
	}
	return ""
}

func yamlName(tag string) string {
	if idx := strings.Index(tag, ","); idx >= 0 {
		return tag[:idx]
	}
	return tag
}
