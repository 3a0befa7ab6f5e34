// Package spec implements the workflow definition format: YAML parsing,
// validation, trigger matching, matrix expansion and ${{ ... }} rendering.
package spec

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Definition is a parsed workflow document.
type Definition struct {
	Name string            `yaml:"name"`
	On   Triggers          `yaml:"on"`
	Env  map[string]string `yaml:"env"`
	Jobs JobList           `yaml:"jobs"`
}

type Triggers struct {
	Push             *BranchFilter  `yaml:"push"`
	PullRequest      *BranchFilter  `yaml:"pull_request"`
	Schedule         []ScheduleSpec `yaml:"schedule"`
	WorkflowDispatch *DispatchSpec  `yaml:"workflow_dispatch"`
}

type BranchFilter struct {
	Branches []string `yaml:"branches"`
}

type ScheduleSpec struct {
	Cron string `yaml:"cron"`
}

// DispatchSpec carries no fields; its presence alone enables manual runs.
type DispatchSpec struct{}

// UnmarshalYAML accepts the three trigger forms: a bare scalar ("on: push"),
// a sequence of event names, and the full mapping form. A mapping key with a
// null value ("workflow_dispatch:") still enables its trigger.
func (t *Triggers) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return t.enable(node.Value)
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("trigger list entries must be event names")
			}
			if err := t.enable(item.Value); err != nil {
				return err
			}
		}
		return nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			val := node.Content[i+1]

			switch key {
			case "push":
				t.Push = &BranchFilter{}
				if !isNullNode(val) {
					if err := val.Decode(t.Push); err != nil {
						return fmt.Errorf("push trigger: %w", err)
					}
				}
			case "pull_request":
				t.PullRequest = &BranchFilter{}
				if !isNullNode(val) {
					if err := val.Decode(t.PullRequest); err != nil {
						return fmt.Errorf("pull_request trigger: %w", err)
					}
				}
			case "schedule":
				if err := val.Decode(&t.Schedule); err != nil {
					return fmt.Errorf("schedule trigger: %w", err)
				}
			case "workflow_dispatch":
				t.WorkflowDispatch = &DispatchSpec{}
			default:
				return fmt.Errorf("unsupported trigger %q", key)
			}
		}
		return nil
	default:
		return fmt.Errorf("on must be an event name, a list, or a mapping")
	}
}

func (t *Triggers) enable(event string) error {
	switch event {
	case "push":
		t.Push = &BranchFilter{}
	case "pull_request":
		t.PullRequest = &BranchFilter{}
	case "workflow_dispatch":
		t.WorkflowDispatch = &DispatchSpec{}
	default:
		return fmt.Errorf("unsupported trigger %q", event)
	}
	return nil
}

func isNullNode(node *yaml.Node) bool {
	return node.Tag == "!!null" || (node.Kind == yaml.ScalarNode && node.Value == "")
}

// JobList preserves the declaration order of the jobs mapping, which plain
// map decoding would lose. Job creation order follows declaration order.
type JobList []JobSpec

type JobSpec struct {
	Key            string            `yaml:"-"`
	Name           string            `yaml:"name"`
	RunsOn         string            `yaml:"runs-on"`
	Strategy       *Strategy         `yaml:"strategy"`
	Env            map[string]string `yaml:"env"`
	TimeoutMinutes int               `yaml:"timeout-minutes"`
	Steps          []StepSpec        `yaml:"steps"`
}

type Strategy struct {
	FailFast *bool   `yaml:"fail-fast"`
	Matrix   *Matrix `yaml:"matrix"`
}

type StepSpec struct {
	Name           string            `yaml:"name"`
	If             string            `yaml:"if"`
	Run            string            `yaml:"run"`
	Env            map[string]string `yaml:"env"`
	TimeoutMinutes int               `yaml:"timeout-minutes"`
}

func (l *JobList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("jobs must be a mapping")
	}
	jobs := make(JobList, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var job JobSpec
		if err := node.Content[i+1].Decode(&job); err != nil {
			return fmt.Errorf("job %q: %w", node.Content[i].Value, err)
		}
		job.Key = node.Content[i].Value
		jobs = append(jobs, job)
	}
	*l = jobs
	return nil
}

// FailFastEnabled reports whether the job opted into fail-fast. Disabled by
// default: a failing matrix combination does not cancel its siblings.
func (j JobSpec) FailFastEnabled() bool {
	if j.Strategy == nil || j.Strategy.FailFast == nil {
		return false
	}
	return *j.Strategy.FailFast
}

// Job returns the job spec with the given YAML key.
func (d *Definition) Job(key string) (JobSpec, bool) {
	for _, j := range d.Jobs {
		if j.Key == key {
			return j, true
		}
	}
	return JobSpec{}, false
}

// Parse decodes and validates a workflow document.
func Parse(source []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(source, &def); err != nil {
		return nil, fmt.Errorf("parse workflow yaml: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}
