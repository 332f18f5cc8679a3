package spec

import (
	"fmt"
	"time"

	"video-orchestrator/core/models"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// BatchSpec represents the YAML batch specification
type BatchSpec struct {
	Batch BatchSpecBatch `yaml:"batch"`
}

// BatchSpecBatch represents the batch section of the spec
type BatchSpecBatch struct {
	Name     string          `yaml:"name"`
	Model    string          `yaml:"model"`
	Variants BatchSpecMatrix `yaml:"variants"`
}

// BatchSpecMatrix represents the variant matrix. One job is produced for
// every prompt x duration x aspect ratio combination.
type BatchSpecMatrix struct {
	Prompts      []string `yaml:"prompts"`
	Durations    []int    `yaml:"durations"`
	AspectRatios []string `yaml:"aspect_ratios"`
}

// ParseBatchSpec parses a YAML batch specification and expands the variant
// matrix into one generation job per combination. All jobs share a freshly
// minted batch ID.
func ParseBatchSpec(specYAML string, now time.Time) ([]models.GenerationJob, error) {
	var spec BatchSpec
	if err := yaml.Unmarshal([]byte(specYAML), &spec); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	model := models.VideoModel(spec.Batch.Model)
	if spec.Batch.Model == "" {
		model = models.ModelStandard
	}
	if !model.Valid() {
		return nil, fmt.Errorf("unsupported model %q", spec.Batch.Model)
	}

	matrix := spec.Batch.Variants
	if len(matrix.Prompts) == 0 {
		return nil, fmt.Errorf("batch spec has no prompts")
	}
	if len(matrix.Durations) == 0 {
		matrix.Durations = []int{int(models.DurationMedium)}
	}
	if len(matrix.AspectRatios) == 0 {
		matrix.AspectRatios = []string{string(models.AspectLandscape)}
	}

	for _, d := range matrix.Durations {
		if !models.Duration(d).Valid() {
			return nil, fmt.Errorf("unsupported duration %d", d)
		}
	}
	for _, ar := range matrix.AspectRatios {
		if !models.AspectRatio(ar).Valid() {
			return nil, fmt.Errorf("unsupported aspect ratio %q", ar)
		}
	}

	batchID := uuid.NewString()
	var jobs []models.GenerationJob
	for _, prompt := range matrix.Prompts {
		if prompt == "" {
			return nil, fmt.Errorf("batch spec contains an empty prompt")
		}
		for _, d := range matrix.Durations {
			for _, ar := range matrix.AspectRatios {
				jobs = append(jobs, models.GenerationJob{
					ID:          uuid.NewString(),
					BatchID:     batchID,
					Prompt:      prompt,
					Model:       model,
					Duration:    models.Duration(d),
					AspectRatio: models.AspectRatio(ar),
					Status:      models.JobStatusQueued,
					QueuedAt:    now,
				})
			}
		}
	}

	return jobs, nil
}
