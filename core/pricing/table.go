package pricing

import (
	"errors"
	"fmt"
	"os"
	"time"

	"video-orchestrator/core/models"

	"gopkg.in/yaml.v3"
)

// ErrInvalidCombination is returned when a (model, duration) pair is outside
// the supported set. Callers must never receive a coerced price.
var ErrInvalidCombination = errors.New("pricing: unsupported model/duration combination")

// DefaultStaleThresholdDays is how old a table may be before estimates built
// on it should be flagged for review.
const DefaultStaleThresholdDays = 30

// Table is a versioned snapshot of unit costs. It is pure data: supporting a
// new model or duration is a table change, not a code change.
type Table struct {
	Version     string
	LastUpdated time.Time

	// generation unit cost in USD, keyed by model then duration
	generation map[models.VideoModel]map[models.Duration]float64

	// fixed per-video LLM charges (prompt enrichment + moderation pass)
	llmPerVideo float64

	// storage rate in USD per second of rendered video
	storagePerSecond float64

	// one-time research charge applied once per non-empty batch
	batchResearch float64
}

// Default returns the compiled-in pricing table.
func Default() *Table {
	return &Table{
		Version:     "2026-07",
		LastUpdated: time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC),
		generation: map[models.VideoModel]map[models.Duration]float64{
			models.ModelStandard: {
				models.DurationShort:  0.25,
				models.DurationMedium: 0.50,
				models.DurationLong:   1.00,
			},
			models.ModelPro: {
				models.DurationShort:  1.25,
				models.DurationMedium: 2.50,
				models.DurationLong:   5.00,
			},
		},
		llmPerVideo:      0.04,
		storagePerSecond: 0.002,
		batchResearch:    0.35,
	}
}

// tableFile is the YAML representation of a pricing table override.
type tableFile struct {
	Version     string    `yaml:"version"`
	LastUpdated time.Time `yaml:"last_updated"`
	Generation  []struct {
		Model    string  `yaml:"model"`
		Duration int     `yaml:"duration_seconds"`
		CostUSD  float64 `yaml:"cost_usd"`
	} `yaml:"generation"`
	LLMPerVideo      float64 `yaml:"llm_per_video_usd"`
	StoragePerSecond float64 `yaml:"storage_per_second_usd"`
	BatchResearch    float64 `yaml:"batch_research_usd"`
}

// LoadFile reads a pricing table from a YAML file.
func LoadFile(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing file: %w", err)
	}

	var tf tableFile
	if err := yaml.Unmarshal(raw, &tf); err != nil {
		return nil, fmt.Errorf("parse pricing file: %w", err)
	}
	if tf.Version == "" {
		return nil, fmt.Errorf("pricing file %s: version is required", path)
	}

	t := &Table{
		Version:          tf.Version,
		LastUpdated:      tf.LastUpdated,
		generation:       make(map[models.VideoModel]map[models.Duration]float64),
		llmPerVideo:      tf.LLMPerVideo,
		storagePerSecond: tf.StoragePerSecond,
		batchResearch:    tf.BatchResearch,
	}
	for _, g := range tf.Generation {
		model := models.VideoModel(g.Model)
		duration := models.Duration(g.Duration)
		if t.generation[model] == nil {
			t.generation[model] = make(map[models.Duration]float64)
		}
		t.generation[model][duration] = g.CostUSD
	}
	return t, nil
}

// UnitCost returns the generation cost in USD for one video of the given
// model and duration. Any pair outside the supported set fails with
// ErrInvalidCombination.
func (t *Table) UnitCost(model models.VideoModel, duration models.Duration) (float64, error) {
	durations, ok := t.generation[model]
	if !ok {
		return 0, fmt.Errorf("%w: model %q", ErrInvalidCombination, model)
	}
	cost, ok := durations[duration]
	if !ok {
		return 0, fmt.Errorf("%w: model %q duration %ds", ErrInvalidCombination, model, duration)
	}
	return cost, nil
}

// LLMPerVideo returns the fixed LLM charge applied to every video.
func (t *Table) LLMPerVideo() float64 { return t.llmPerVideo }

// StorageCost returns the storage charge for one video of the given duration.
func (t *Table) StorageCost(duration models.Duration) float64 {
	return t.storagePerSecond * float64(duration)
}

// BatchResearch returns the one-time research charge per non-empty batch.
func (t *Table) BatchResearch() float64 { return t.batchResearch }

// IsStale reports whether the table's last update is older than the default
// staleness threshold at the given instant.
func (t *Table) IsStale(now time.Time) bool {
	return Stale(now, t.LastUpdated, DefaultStaleThresholdDays)
}

// Stale reports whether lastUpdated is more than thresholdDays before now.
func Stale(now, lastUpdated time.Time, thresholdDays int) bool {
	return now.Sub(lastUpdated) > time.Duration(thresholdDays)*24*time.Hour
}
