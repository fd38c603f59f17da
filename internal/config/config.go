package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Parameters holds the tuning constants that govern the attention and
// inference-control core. Every field mirrors the configuration table in
// the core specification; none of them have reasoning-rule semantics of
// their own, they only shape how the control layer spends its bounded
// attention.
type Parameters struct {
	// ConceptBagSize is the capacity of the concept store.
	ConceptBagSize int `mapstructure:"concept_bag_size" yaml:"concept_bag_size"`
	// TaskLinkBagSize is the capacity of cyclingTasks and the premise queue.
	TaskLinkBagSize int `mapstructure:"task_link_bag_size" yaml:"task_link_bag_size"`
	// ConceptBeliefsMax is the number of beliefs retained per concept.
	ConceptBeliefsMax int `mapstructure:"concept_beliefs_max" yaml:"concept_beliefs_max"`
	// ConceptForgetDurations is the decay applied on concept reinsertion, passed to forgetting as a cycle count.
	ConceptForgetDurations float64 `mapstructure:"concept_forget_durations" yaml:"concept_forget_durations"`
	// TaskLinkForgetDurations is the decay applied on task reinsertion, passed to forgetting as a cycle count.
	TaskLinkForgetDurations float64 `mapstructure:"tasklink_forget_durations" yaml:"tasklink_forget_durations"`
	// NoveltyHorizon is the minimum number of cycles between two firings of the same concept.
	NoveltyHorizon int64 `mapstructure:"novelty_horizon" yaml:"novelty_horizon"`
	// SequenceBagAttempts is the number of temporal anchors drawn per cycle.
	SequenceBagAttempts int `mapstructure:"sequence_bag_attempts" yaml:"sequence_bag_attempts"`
	// TasksMaxFired is the number of tasks fired per cycle.
	TasksMaxFired int `mapstructure:"tasks_max_fired" yaml:"tasks_max_fired"`
	// PremisesMaxFired is the number of premise records executed per cycle.
	PremisesMaxFired int `mapstructure:"premises_max_fired" yaml:"premises_max_fired"`
	// Duration is the number of cycles per logical "duration".
	Duration int `mapstructure:"duration" yaml:"duration"`
	// Volume is the 0-100 output reporting threshold.
	Volume int `mapstructure:"volume" yaml:"volume"`
	// QualityRescaled is the quality-floor multiplier used by forgetting.
	QualityRescaled float64 `mapstructure:"quality_rescaled" yaml:"quality_rescaled"`
	// DefaultFeedbackPriority is the priority given to tasks synthesized from executed operations.
	DefaultFeedbackPriority float64 `mapstructure:"default_feedback_priority" yaml:"default_feedback_priority"`
	// DefaultFeedbackDurability is the durability given to tasks synthesized from executed operations.
	DefaultFeedbackDurability float64 `mapstructure:"default_feedback_durability" yaml:"default_feedback_durability"`

	// OverflowCacheSize is the capacity of the optional overflow ("subconscious")
	// cache. Zero disables the overflow cache entirely.
	OverflowCacheSize int `mapstructure:"overflow_cache_size" yaml:"overflow_cache_size"`
	// BagLevels is the number of discrete priority buckets used by the
	// probabilistic Bag container, when selected over the deterministic
	// PriorityMap.
	BagLevels int `mapstructure:"bag_levels" yaml:"bag_levels"`
	// RandomSeed seeds the per-reasoner RNG used by the probabilistic Bag.
	RandomSeed int64 `mapstructure:"random_seed" yaml:"random_seed"`

	// SnapshotPath is where the reasoner's persisted memory snapshot lives.
	SnapshotPath string `mapstructure:"snapshot_path" yaml:"snapshot_path"`
	// LogFile is the optional file sink for the verbose tracer.
	LogFile string `mapstructure:"log_file" yaml:"log_file"`
}

// Default returns the reference parameter set used throughout the core's
// own test suite and documentation examples.
func Default() *Parameters {
	return &Parameters{
		ConceptBagSize:            1000,
		TaskLinkBagSize:           1000,
		ConceptBeliefsMax:         7,
		ConceptForgetDurations:    2,
		TaskLinkForgetDurations:   4,
		NoveltyHorizon:            10,
		SequenceBagAttempts:       10,
		TasksMaxFired:             1,
		PremisesMaxFired:          8,
		Duration:                  5,
		Volume:                    100,
		QualityRescaled:           0.3,
		DefaultFeedbackPriority:   0.8,
		DefaultFeedbackDurability: 0.8,
		OverflowCacheSize:         2000,
		BagLevels:                 100,
		RandomSeed:                1,
		SnapshotPath:              "~/.alann/snapshot.db",
		LogFile:                   "",
	}
}

// Load reads Parameters from the default location (~/.alann/config.yaml),
// creating the file with defaults if it does not yet exist, then merges in
// ALANN_-prefixed environment overrides.
func Load() (*Parameters, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}
	return LoadFromPath(filepath.Join(homeDir, ".alann", "config.yaml"))
}

// LoadFromPath reads Parameters from a specific file path, creating it with
// defaults if absent, then merges in environment overrides.
func LoadFromPath(path string) (*Parameters, error) {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ALANN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	params := *Default()
	if err := v.Unmarshal(&params); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	params.SnapshotPath = expandPath(params.SnapshotPath)
	params.LogFile = expandPath(params.LogFile)

	return &params, nil
}

// Save writes p to the default config file location.
func (p *Parameters) Save() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("get home directory: %w", err)
	}
	return p.SaveToPath(filepath.Join(homeDir, ".alann", "config.yaml"))
}

// SaveToPath writes p to a specific file path.
func (p *Parameters) SaveToPath(path string) error {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return writeConfigFile(path, p)
}

// Validate rejects parameter combinations the core cannot run with. Per the
// core's error-handling design, a ParameterOutOfRange condition is fatal at
// construction time rather than silently clamped.
func (p *Parameters) Validate() error {
	nonNegativeInts := map[string]int{
		"concept_bag_size":      p.ConceptBagSize,
		"task_link_bag_size":    p.TaskLinkBagSize,
		"concept_beliefs_max":   p.ConceptBeliefsMax,
		"sequence_bag_attempts": p.SequenceBagAttempts,
		"tasks_max_fired":       p.TasksMaxFired,
		"premises_max_fired":    p.PremisesMaxFired,
		"duration":              p.Duration,
		"overflow_cache_size":   p.OverflowCacheSize,
		"bag_levels":            p.BagLevels,
	}
	for name, v := range nonNegativeInts {
		if v < 0 {
			return fmt.Errorf("%s must be >= 0, got %d", name, v)
		}
	}
	if p.NoveltyHorizon < 0 {
		return fmt.Errorf("novelty_horizon must be >= 0, got %d", p.NoveltyHorizon)
	}
	if p.Volume < 0 || p.Volume > 100 {
		return fmt.Errorf("volume must be in [0,100], got %d", p.Volume)
	}
	unitIntervals := map[string]float64{
		"quality_rescaled":            p.QualityRescaled,
		"default_feedback_priority":   p.DefaultFeedbackPriority,
		"default_feedback_durability": p.DefaultFeedbackDurability,
	}
	for name, v := range unitIntervals {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %f", name, v)
		}
	}
	if p.Duration == 0 {
		return fmt.Errorf("duration must be > 0")
	}
	return nil
}

// Cycles converts a duration count into a cycle count (Duration cycles per
// duration). The core does not call it: the forget parameters reach the
// store unconverted.
func (p *Parameters) Cycles(durations float64) float64 {
	return float64(p.Duration) * durations
}

func writeConfigFile(path string, params *Parameters) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(params)
}

func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
