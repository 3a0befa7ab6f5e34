package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forgeci/internal/core/domain"
)

func TestMatches(t *testing.T) {
	def, err := Parse([]byte(ciWorkflow))
	require.NoError(t, err)

	tests := []struct {
		name string
		ev   domain.Event
		want bool
	}{
		{"push to main", domain.Event{Kind: domain.EventPush, Branch: "main"}, true},
		{"push to feature branch", domain.Event{Kind: domain.EventPush, Branch: "feature/x"}, false},
		{"pr to main", domain.Event{Kind: domain.EventPullRequest, Branch: "main", PRNumber: 12}, true},
		{"pr to other branch", domain.Event{Kind: domain.EventPullRequest, Branch: "dev"}, false},
		{"schedule", domain.Event{Kind: domain.EventSchedule}, true},
		{"dispatch not declared", domain.Event{Kind: domain.EventDispatch}, false},
		{"unknown kind", domain.Event{Kind: "deployment"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, def.Matches(tt.ev))
		})
	}
}

func TestMatches_EmptyBranchFilterAcceptsAnyBranch(t *testing.T) {
	def, err := Parse([]byte(`
name: any-branch
on: push
jobs:
  only:
    steps:
      - run: "true"
`))
	require.NoError(t, err)

	assert.True(t, def.Matches(domain.Event{Kind: domain.EventPush, Branch: "main"}))
	assert.True(t, def.Matches(domain.Event{Kind: domain.EventPush, Branch: "anything"}))
	assert.False(t, def.Matches(domain.Event{Kind: domain.EventSchedule}))
}

func TestMatches_Dispatch(t *testing.T) {
	def, err := Parse([]byte(`
name: manual
on:
  workflow_dispatch:
jobs:
  only:
    steps:
      - run: "true"
`))
	require.NoError(t, err)

	assert.True(t, def.Matches(domain.Event{Kind: domain.EventDispatch}))
	assert.False(t, def.Matches(domain.Event{Kind: domain.EventPush, Branch: "main"}))
}
