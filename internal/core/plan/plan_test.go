package plan

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Plan Tests
// =============================================================================

func TestNew_InfraBeforeApp(t *testing.T) {
	p := New("yamls", []string{"01.yaml", "02.yaml"}, []string{"04.yaml"})

	require.Len(t, p.Steps, 3)
	assert.Equal(t, Step{Path: filepath.Join("yamls", "01.yaml"), Tier: TierInfrastructure}, p.Steps[0])
	assert.Equal(t, Step{Path: filepath.Join("yamls", "02.yaml"), Tier: TierInfrastructure}, p.Steps[1])
	assert.Equal(t, Step{Path: filepath.Join("yamls", "04.yaml"), Tier: TierApplication}, p.Steps[2])
}

func TestNew_AbsolutePathKept(t *testing.T) {
	p := New("yamls", []string{"/etc/tfy/ws.yaml"}, nil)
	assert.Equal(t, "/etc/tfy/ws.yaml", p.Steps[0].Path)
}

func TestNew_EmptyDir(t *testing.T) {
	p := New("", []string{"01.yaml"}, nil)
	assert.Equal(t, "01.yaml", p.Steps[0].Path)
}

func defaultPlan() Plan {
	return New(DefaultTemplatesDir, DefaultInfraFiles, DefaultAppFiles)
}

func TestNew_DefaultFiles(t *testing.T) {
	p := defaultPlan()

	assert.Equal(t, 2, p.Count(TierInfrastructure))
	assert.Equal(t, 7, p.Count(TierApplication))
	assert.Equal(t, "01-ml-repo.yaml", p.Steps[0].Name())
	assert.Equal(t, "02-workspace.yaml", p.Steps[1].Name())
	assert.Equal(t, "04-service1.yaml", p.Steps[2].Name())
	assert.Equal(t, "10-ssh-server.yaml", p.Steps[8].Name())
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Plan{}.Validate(), ErrEmptyPlan)
	assert.Error(t, New("", []string{" "}, nil).Validate())
	assert.NoError(t, defaultPlan().Validate())
}

// =============================================================================
// Policy Tests
// =============================================================================

func TestIsFatal(t *testing.T) {
	infra := Step{Path: "01.yaml", Tier: TierInfrastructure}
	app := Step{Path: "04.yaml", Tier: TierApplication}

	tests := []struct {
		name   string
		result StepResult
		want   bool
	}{
		{"infra failed", StepResult{Step: infra, Outcome: OutcomeFailed}, true},
		{"infra applied", StepResult{Step: infra, Outcome: OutcomeApplied}, false},
		{"infra skipped", StepResult{Step: infra, Outcome: OutcomeSkipped}, false},
		{"app failed", StepResult{Step: app, Outcome: OutcomeFailed}, false},
		{"app applied", StepResult{Step: app, Outcome: OutcomeApplied}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFatal(tt.result))
		})
	}
}

func TestParseMissingPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    MissingPolicy
		wantErr bool
	}{
		{"", MissingSkip, false},
		{"skip", MissingSkip, false},
		{"FAIL", MissingFail, false},
		{" fail ", MissingFail, false},
		{"ignore", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMissingPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// =============================================================================
// Report Tests
// =============================================================================

func TestReport_Counts(t *testing.T) {
	p := defaultPlan()
	r := &Report{}
	r.Add(StepResult{Step: p.Steps[0], Outcome: OutcomeApplied})
	r.Add(StepResult{Step: p.Steps[1], Outcome: OutcomeSkipped})
	r.Add(StepResult{Step: p.Steps[2], Outcome: OutcomeFailed})

	c := r.Counts(p)
	assert.Equal(t, Counts{Applied: 1, Skipped: 1, Failed: 1, NotAttempted: 6}, c)
	require.Len(t, r.Failed(), 1)
	assert.Equal(t, p.Steps[2], r.Failed()[0].Step)
}

func TestDuplicateNames(t *testing.T) {
	assert.Empty(t, defaultPlan().DuplicateNames())

	p := New("yamls", []string{"ws.yaml", "/etc/tfy/ws.yaml"}, []string{"svc.yaml", "other/svc.yaml", "more/svc.yaml"})
	assert.Equal(t, []string{"ws.yaml", "svc.yaml"}, p.DuplicateNames())
}

func TestReport_Duration(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &Report{StartedAt: start}
	assert.Zero(t, r.Duration())

	r.FinishedAt = start.Add(90 * time.Second)
	assert.Equal(t, 90*time.Second, r.Duration())
}
