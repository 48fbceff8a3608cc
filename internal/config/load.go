package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/crb2nu/loom-zed/internal/platform"
	"github.com/go-logr/logr"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

// EnvPrefix prefixes environment overrides, e.g. LOOM_ZED_DOWNLOAD_TAG.
const EnvPrefix = "LOOM_ZED"

// Loader reads settings files. Supported formats are JSON, YAML, TOML and
// Lua, chosen by file extension.
type Loader struct {
	detector platform.Detector
	logger   logr.Logger
	env      bool
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithDetector sets the detector used to build the Lua platform table.
func WithDetector(d platform.Detector) LoaderOption {
	return func(l *Loader) { l.detector = d }
}

// WithLogger sets the logger.
func WithLogger(logger logr.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// WithEnv toggles LOOM_ZED_* environment overrides. On by default.
func WithEnv(enabled bool) LoaderOption {
	return func(l *Loader) { l.env = enabled }
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		detector: platform.NewDetector(),
		logger:   logr.Discard(),
		env:      true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads settings from path and applies defaults and environment
// overrides. An empty path yields the defaults plus overrides.
func (l *Loader) Load(ctx context.Context, path string) (*Settings, error) {
	var doc map[string]any
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}
		for _, f := range DetectSensitiveData(string(data)) {
			l.logger.Info("settings file may contain a secret; prefer the environment",
				"path", path, "line", f.Line, "kind", f.PatternName, "preview", f.Preview)
		}
		doc, err = l.Decode(ctx, filepath.Ext(path), data)
		if err != nil {
			return nil, fmt.Errorf("parse settings %s: %w", path, err)
		}
		if err := Validate(doc); err != nil {
			return nil, fmt.Errorf("settings %s: %w", path, err)
		}
	}

	s, err := l.resolve(doc)
	if err != nil {
		return nil, err
	}
	l.logger.V(1).Info("settings loaded", "path", path, "repo", s.Download.Repo,
		"tag", s.Download.Tag, "download", s.Download.Enabled)
	return s, nil
}

// Decode parses a settings document. ext selects the format and includes
// the leading dot.
func (l *Loader) Decode(ctx context.Context, ext string, data []byte) (map[string]any, error) {
	doc := map[string]any{}
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	case ".lua":
		return l.evalLua(ctx, string(data))
	default:
		return nil, fmt.Errorf("unsupported settings format %q", ext)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

func (l *Loader) resolve(doc map[string]any) (*Settings, error) {
	v := viper.New()
	def := Defaults()
	v.SetDefault("download.enabled", def.Download.Enabled)
	v.SetDefault("download.repo", def.Download.Repo)
	v.SetDefault("download.tag", "")
	v.SetDefault("download.asset", "")
	v.SetDefault("command.path", "")
	v.SetDefault("command.args", def.Command.Args)

	if l.env {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}
	if doc != nil {
		if err := v.MergeConfigMap(dropNulls(doc)); err != nil {
			return nil, fmt.Errorf("merge settings: %w", err)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	// viper folds keys to lower case, which would corrupt variable names.
	s.Command.Env = envTable(doc)
	s.normalize()
	return s, nil
}

func dropNulls(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch v := v.(type) {
		case nil:
		case map[string]any:
			out[k] = dropNulls(v)
		default:
			out[k] = v
		}
	}
	return out
}

func envTable(doc map[string]any) map[string]string {
	command, _ := doc["command"].(map[string]any)
	env, _ := command["env"].(map[string]any)
	if len(env) == 0 {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
