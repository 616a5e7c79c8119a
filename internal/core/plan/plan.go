// Package plan describes the ordered set of template files a run applies and
// the two-tier failure policy that governs it.
//
// All functions are pure. The imperative shell (internal/shell/deployer)
// walks a Plan and feeds each StepResult back through IsFatal.
package plan

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// =============================================================================
// Tier
// =============================================================================

// Tier groups steps by how their failure is treated.
type Tier string

const (
	// TierInfrastructure steps must all succeed; the first failure ends the run.
	TierInfrastructure Tier = "infrastructure"
	// TierApplication step failures are reported and the run continues.
	TierApplication Tier = "application"
)

// DefaultTemplatesDir is where template files are looked up.
const DefaultTemplatesDir = "yamls"

// DefaultInfraFiles are applied first, in order.
// 03-volume.yaml exists upstream but is disabled; add it through configuration.
var DefaultInfraFiles = []string{
	"01-ml-repo.yaml",
	"02-workspace.yaml",
}

// DefaultAppFiles are applied after every infrastructure file succeeded.
var DefaultAppFiles = []string{
	"04-service1.yaml",
	"05-service2.yaml",
	"06-service3.yaml",
	"07-service-autoscale.yaml",
	"08-llama7b.yaml",
	"09-notebook.yaml",
	"10-ssh-server.yaml",
}

// ErrEmptyPlan is returned by Validate when there is nothing to apply.
var ErrEmptyPlan = errors.New("plan has no steps")

// =============================================================================
// Plan
// =============================================================================

// Step is a single template file to apply.
type Step struct {
	Path string
	Tier Tier
}

// Name returns the file name of the step, used in logs and reports.
func (s Step) Name() string {
	return filepath.Base(s.Path)
}

// Plan is the ordered list of steps of a run.
type Plan struct {
	Steps []Step
}

// New builds a plan with every infra file before every app file, each list
// keeping its given order. Relative paths are joined to dir; absolute paths
// are kept.
//
// Example:
//
//	p := plan.New("yamls", []string{"01-ml-repo.yaml"}, []string{"04-service1.yaml"})
//	// p.Steps: [{yamls/01-ml-repo.yaml infrastructure} {yamls/04-service1.yaml application}]
func New(dir string, infra, app []string) Plan {
	steps := make([]Step, 0, len(infra)+len(app))
	for _, f := range infra {
		steps = append(steps, Step{Path: resolve(dir, f), Tier: TierInfrastructure})
	}
	for _, f := range app {
		steps = append(steps, Step{Path: resolve(dir, f), Tier: TierApplication})
	}
	return Plan{Steps: steps}
}

// Validate checks the plan has steps and none of them has an empty path.
func (p Plan) Validate() error {
	if len(p.Steps) == 0 {
		return ErrEmptyPlan
	}
	for i, s := range p.Steps {
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("step %d: empty path", i)
		}
	}
	return nil
}

// Count returns how many steps belong to tier.
func (p Plan) Count(tier Tier) int {
	n := 0
	for _, s := range p.Steps {
		if s.Tier == tier {
			n++
		}
	}
	return n
}

// DuplicateNames returns the file names shared by more than one step, in
// plan order. Steps from different directories can share a name.
func (p Plan) DuplicateNames() []string {
	seen := make(map[string]int, len(p.Steps))
	var dups []string
	for _, s := range p.Steps {
		seen[s.Name()]++
		if seen[s.Name()] == 2 {
			dups = append(dups, s.Name())
		}
	}
	return dups
}

func resolve(dir, file string) string {
	if dir == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}
