package spec

import (
	"testing"
	"time"

	"video-orchestrator/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullSpec = `
batch:
  name: spring-launch
  model: pro
  variants:
    prompts:
      - "a sneaker rotating on a pedestal"
      - "the same sneaker splashing through a puddle"
    durations: [5, 10]
    aspect_ratios: ["16:9", "9:16", "1:1"]
`

func TestParseBatchSpec_ExpandsMatrix(t *testing.T) {
	now := time.Now().UTC()
	jobs, err := ParseBatchSpec(fullSpec, now)
	require.NoError(t, err)

	// 2 prompts x 2 durations x 3 aspect ratios
	require.Len(t, jobs, 12)

	batchID := jobs[0].BatchID
	seen := make(map[string]bool)
	for _, job := range jobs {
		assert.Equal(t, batchID, job.BatchID)
		assert.Equal(t, models.ModelPro, job.Model)
		assert.Equal(t, models.JobStatusQueued, job.Status)
		assert.Equal(t, now, job.QueuedAt)
		assert.False(t, seen[job.ID], "job ids must be unique")
		seen[job.ID] = true
	}
}

func TestParseBatchSpec_Defaults(t *testing.T) {
	jobs, err := ParseBatchSpec(`
batch:
  variants:
    prompts: ["a single prompt"]
`, time.Now())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.ModelStandard, jobs[0].Model)
	assert.Equal(t, models.DurationMedium, jobs[0].Duration)
	assert.Equal(t, models.AspectLandscape, jobs[0].AspectRatio)
}

func TestParseBatchSpec_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"malformed yaml", `batch: [`},
		{"no prompts", `
batch:
  variants:
    durations: [5]
`},
		{"empty prompt", `
batch:
  variants:
    prompts: [""]
`},
		{"bad duration", `
batch:
  variants:
    prompts: ["p"]
    durations: [7]
`},
		{"bad aspect ratio", `
batch:
  variants:
    prompts: ["p"]
    aspect_ratios: ["4:3"]
`},
		{"bad model", `
batch:
  model: ultra
  variants:
    prompts: ["p"]
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseBatchSpec(tc.yaml, time.Now())
			assert.Error(t, err)
		})
	}
}

func TestParseBatchSpec_FreshBatchIDPerCall(t *testing.T) {
	a, err := ParseBatchSpec(fullSpec, time.Now())
	require.NoError(t, err)
	b, err := ParseBatchSpec(fullSpec, time.Now())
	require.NoError(t, err)
	assert.NotEqual(t, a[0].BatchID, b[0].BatchID)
}
