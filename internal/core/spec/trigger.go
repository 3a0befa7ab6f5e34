package spec

import (
	"forgeci/internal/core/domain"
)

// Matches reports whether the workflow's triggers accept the event.
//
// Branch filters are exact matches; an empty filter accepts any branch.
// Schedule events match any workflow declaring at least one cron entry; the
// scheduler is responsible for firing them at the right time.
func (d *Definition) Matches(ev domain.Event) bool {
	switch ev.Kind {
	case domain.EventPush:
		return d.On.Push != nil && branchMatches(d.On.Push.Branches, ev.Branch)
	case domain.EventPullRequest:
		return d.On.PullRequest != nil && branchMatches(d.On.PullRequest.Branches, ev.Branch)
	case domain.EventSchedule:
		return len(d.On.Schedule) > 0
	case domain.EventDispatch:
		return d.On.WorkflowDispatch != nil
	default:
		return false
	}
}

func branchMatches(filter []string, branch string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, b := range filter {
		if b == branch {
			return true
		}
	}
	return false
}
