// Package config reads sound configuration files and application settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"clack/clip"
	"clack/keys"
	"clack/log"
)

var (
	ErrConfigMissing   = errors.New("sound config not found")
	ErrConfigMalformed = errors.New("sound config malformed")
)

const DefaultPath = "sound_config.json"

// Sound is one sound pack: a master recording and the slices cut from it.
type Sound struct {
	ID      string           `mapstructure:"id" yaml:"id,omitempty"`
	Name    string           `mapstructure:"name" yaml:"name,omitempty"`
	Sound   string           `mapstructure:"sound" yaml:"sound"`
	Defines map[string][]int `mapstructure:"-" yaml:"defines"`

	// Path is the file the config was loaded from, empty for Parse.
	Path        string            `mapstructure:"-" yaml:"-"`
	Definitions []clip.Definition `mapstructure:"-" yaml:"-"`
}

// Title is the display name of the pack.
func (s *Sound) Title() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.ID != "":
		return s.ID
	default:
		return filepath.Base(s.Sound)
	}
}

func (s *Sound) YAML() ([]byte, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return out, nil
}

var defineKey = regexp.MustCompile(`^(10|[0-9])(-up)?$`)

// Load reads the config at path. A relative sound path is resolved against
// the config file's directory.
func Load(path string) (*Sound, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigMissing, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	s, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	if !filepath.IsAbs(s.Sound) {
		s.Sound = filepath.Join(filepath.Dir(path), s.Sound)
	}
	return s, nil
}

func formatOf(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "yaml", "yml", "toml":
		return ext
	default:
		return "json"
	}
}

// Parse decodes a config document in the given viper format (json, yaml, toml).
func Parse(data []byte, format string) (*Sound, error) {
	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigMalformed, err)
	}

	var s Sound
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigMalformed, err)
	}
	if s.Sound == "" {
		return nil, fmt.Errorf("%w: missing \"sound\"", ErrConfigMalformed)
	}

	raw, ok := v.Get("defines").(map[string]any)
	if v.IsSet("defines") && !ok {
		return nil, fmt.Errorf("%w: \"defines\" must be an object", ErrConfigMalformed)
	}
	defs, defines, err := parseDefines(raw)
	if err != nil {
		return nil, err
	}
	s.Definitions = defs
	s.Defines = defines
	return &s, nil
}

func parseDefines(raw map[string]any) ([]clip.Definition, map[string][]int, error) {
	seen := make(map[clip.ID]string, len(raw))
	defines := make(map[string][]int, len(raw))
	defs := make([]clip.Definition, 0, len(raw))

	for key, val := range raw {
		m := defineKey.FindStringSubmatch(key)
		if m == nil {
			log.Warnf("sound config: ignoring unknown define %q", key)
			continue
		}
		n, _ := strconv.Atoi(m[1])
		id := clip.ID{Bucket: n % keys.Buckets, Phase: keys.Down}
		if m[2] != "" {
			id.Phase = keys.Up
		}
		if prev, dup := seen[id]; dup {
			return nil, nil, fmt.Errorf("%w: %q and %q both define clip %s", ErrConfigMalformed, prev, key, id)
		}
		seen[id] = key

		pair, err := msPair(val)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: define %q: %v", ErrConfigMalformed, key, err)
		}
		defines[key] = []int{int(pair[0]), int(pair[1])}
		defs = append(defs, clip.Definition{ID: id, StartMs: pair[0], DurationMs: pair[1]})
	}

	sort.Slice(defs, func(i, j int) bool {
		if defs[i].ID.Bucket != defs[j].ID.Bucket {
			return defs[i].ID.Bucket < defs[j].ID.Bucket
		}
		return defs[i].ID.Phase < defs[j].ID.Phase
	})
	return defs, defines, nil
}

func msPair(val any) ([2]uint, error) {
	var out [2]uint
	list, ok := val.([]any)
	if !ok || len(list) != 2 {
		return out, fmt.Errorf("want [start_ms, duration_ms], got %v", val)
	}
	for i, x := range list {
		n, err := nonNegInt(x)
		if err != nil {
			return out, err
		}
		out[i] = n
	}
	return out, nil
}

func nonNegInt(x any) (uint, error) {
	var f float64
	switch n := x.(type) {
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float64:
		f = n
	default:
		return 0, fmt.Errorf("%v is not a number", x)
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxUint32 {
		return 0, fmt.Errorf("%v is not a non-negative integer", x)
	}
	return uint(f), nil
}
