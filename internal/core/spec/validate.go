package spec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate checks the definition beyond what YAML decoding enforces. It also
// dry-runs the matrix expansion of every job so bad interpolations and
// colliding job names are caught at registration time, not mid-run.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("workflow name is required")
	}
	if d.On.Push == nil && d.On.PullRequest == nil && len(d.On.Schedule) == 0 && d.On.WorkflowDispatch == nil {
		return fmt.Errorf("workflow %q declares no triggers", d.Name)
	}
	for _, s := range d.On.Schedule {
		if _, err := cron.ParseStandard(s.Cron); err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", s.Cron, err)
		}
	}
	if len(d.Jobs) == 0 {
		return fmt.Errorf("workflow %q declares no jobs", d.Name)
	}

	for _, job := range d.Jobs {
		if err := validateJob(job); err != nil {
			return err
		}
	}
	return nil
}

func validateJob(job JobSpec) error {
	if len(job.Steps) == 0 {
		return fmt.Errorf("job %q declares no steps", job.Key)
	}
	for i, step := range job.Steps {
		if step.Run == "" {
			return fmt.Errorf("job %q step %d has no run command", job.Key, i+1)
		}
	}

	var matrix *Matrix
	if job.Strategy != nil {
		matrix = job.Strategy.Matrix
	}
	if matrix != nil {
		axes := make(map[string]bool, len(matrix.Axes))
		for _, a := range matrix.Axes {
			if len(a.Values) == 0 {
				return fmt.Errorf("job %q matrix axis %q has no values", job.Key, a.Key)
			}
			if axes[a.Key] {
				return fmt.Errorf("job %q matrix axis %q declared twice", job.Key, a.Key)
			}
			axes[a.Key] = true
		}
		for _, row := range matrix.Exclude {
			for k := range row {
				if !axes[k] {
					return fmt.Errorf("job %q matrix exclude references unknown axis %q", job.Key, k)
				}
			}
		}
		// Include rows may carry extra keys, but each row must share at
		// least one declared axis or it can never attach to a combination.
		// An axis-less matrix of bare include rows is still allowed.
		if len(matrix.Axes) > 0 {
			for _, row := range matrix.Include {
				shared := false
				for k := range row {
					if axes[k] {
						shared = true
						break
					}
				}
				if !shared {
					return fmt.Errorf("job %q matrix include row references no declared axis", job.Key)
				}
			}
		}
	}

	// Dry-run the expansion: every rendered name must be valid and unique.
	seen := make(map[string]bool)
	for _, row := range matrix.Expand() {
		name, err := RenderJobName(job, row)
		if err != nil {
			return fmt.Errorf("job %q: %w", job.Key, err)
		}
		if seen[name] {
			return fmt.Errorf("job %q expands to duplicate name %q", job.Key, name)
		}
		seen[name] = true

		if _, err := Render(job.RunsOn, Context{Matrix: row}); err != nil {
			return fmt.Errorf("job %q runs-on: %w", job.Key, err)
		}
		for i, step := range job.Steps {
			if step.If == "" {
				continue
			}
			if _, err := EvalCondition(step.If, CondContext{Matrix: row}); err != nil {
				return fmt.Errorf("job %q step %d if: %w", job.Key, i+1, err)
			}
		}
	}
	return nil
}

// RenderJobName interpolates the job's display name for one matrix row. Jobs
// without an explicit name fall back to "key (v1, v2, ...)" with the values
// in sorted-key order, so unnamed matrix jobs still expand to unique names.
func RenderJobName(job JobSpec, row map[string]string) (string, error) {
	if job.Name != "" {
		return Render(job.Name, Context{Matrix: row})
	}
	if len(row) == 0 {
		return job.Key, nil
	}
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]string, 0, len(keys))
	for _, k := range keys {
		vals = append(vals, row[k])
	}
	return fmt.Sprintf("%s (%s)", job.Key, strings.Join(vals, ", ")), nil
}
