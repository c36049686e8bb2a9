package achievement

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kutalian/dynofx/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Definition is one static catalog entry. The rule is declarative config;
// the predicate it compiles to is code.
type Definition struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	XPReward    int64  `yaml:"xp_reward"`
	Rule        Rule   `yaml:"rule"`

	predicate Predicate
}

// Rule selects a predicate kind and its parameters.
type Rule struct {
	Kind      string  `yaml:"kind"`
	Threshold int64   `yaml:"threshold"`
	Ratio     float64 `yaml:"ratio"`
	MinTrades int64   `yaml:"min_trades"`
}

// FileConfig maps the achievements catalog file.
type FileConfig struct {
	Achievements map[string]Definition `yaml:"achievements"`
}

// Snapshot is an immutable view of the loaded catalog.
type Snapshot struct {
	Version     int64
	LoadedAt    time.Time
	Definitions []Definition
}

// Catalog loads the achievement definitions from a YAML file, validates
// them against an embedded schema and watches the file for updates. A
// reload that fails validation keeps the previous snapshot active.
type Catalog struct {
	path string
	v    *viper.Viper

	mu       sync.RWMutex
	snapshot Snapshot
}

// catalogSchema is the contract a catalog file must satisfy before a
// reload is activated.
const catalogSchema = `{
  "type": "object",
  "required": ["achievements"],
  "properties": {
    "achievements": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "object",
        "required": ["name", "xp_reward", "rule"],
        "properties": {
          "id": {"type": "string"},
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "xp_reward": {"type": "integer", "minimum": 0},
          "rule": {
            "type": "object",
            "required": ["kind"],
            "properties": {
              "kind": {"enum": ["closed_trades", "profitable_trades", "balance_ratio", "net_profit"]},
              "threshold": {"type": "integer", "minimum": 1},
              "ratio": {"type": "number", "exclusiveMinimum": 1},
              "min_trades": {"type": "integer", "minimum": 0}
            },
            "additionalProperties": false
          }
        },
        "additionalProperties": false
      }
    }
  }
}`

var compiledCatalogSchema = mustCompileSchema(catalogSchema)

func mustCompileSchema(raw string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("catalog.json", strings.NewReader(raw)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("catalog.json")
}

// NewCatalog reads the catalog file and watches it for updates.
func NewCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("achievement catalog requires a path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read achievement catalog failed: %w", err)
	}
	c := &Catalog{path: path, v: v}
	if err := c.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := c.reload(); err != nil {
			logger.Errorf("achievement catalog reload failed, keeping previous: %v", err)
		}
	})
	v.WatchConfig()
	return c, nil
}

// Snapshot returns the current definition set, sorted by id.
func (c *Catalog) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	defs := make([]Definition, len(c.snapshot.Definitions))
	copy(defs, c.snapshot.Definitions)
	return Snapshot{Version: c.snapshot.Version, LoadedAt: c.snapshot.LoadedAt, Definitions: defs}
}

func (c *Catalog) reload() error {
	cfg, err := readCatalogFile(c.path)
	if err != nil {
		return err
	}
	defs := make([]Definition, 0, len(cfg.Achievements))
	for name, def := range cfg.Achievements {
		norm, err := normalizeDefinition(name, def)
		if err != nil {
			return err
		}
		defs = append(defs, norm)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })

	c.mu.Lock()
	c.snapshot = Snapshot{
		Version:     c.snapshot.Version + 1,
		LoadedAt:    time.Now(),
		Definitions: defs,
	}
	c.mu.Unlock()
	logger.Infof("achievement catalog loaded %d definitions from %s", len(defs), filepath.Base(c.path))
	return nil
}

func normalizeDefinition(name string, def Definition) (Definition, error) {
	def.ID = strings.TrimSpace(def.ID)
	if def.ID == "" {
		def.ID = strings.TrimSpace(name)
	}
	def.Name = strings.TrimSpace(def.Name)
	def.Description = strings.TrimSpace(def.Description)
	pred, err := compilePredicate(def.Rule)
	if err != nil {
		return Definition{}, fmt.Errorf("achievement %s: %w", def.ID, err)
	}
	def.predicate = pred
	return def, nil
}

func readCatalogFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read achievement catalog failed: %w", err)
	}
	// Validate the document shape before decoding into typed config.
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return FileConfig{}, fmt.Errorf("parse achievement catalog failed: %w", err)
	}
	if err := compiledCatalogSchema.Validate(toJSONValue(doc)); err != nil {
		return FileConfig{}, fmt.Errorf("achievement catalog invalid: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse achievement catalog failed: %w", err)
	}
	return cfg, nil
}

// toJSONValue round-trips a decoded YAML value through encoding/json so
// the schema validator sees the types it expects.
func toJSONValue(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}
