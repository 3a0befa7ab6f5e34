package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			"missing name",
			"on: push\njobs:\n  a:\n    steps:\n      - run: x\n",
			"name is required",
		},
		{
			"no triggers",
			"name: w\njobs:\n  a:\n    steps:\n      - run: x\n",
			"no triggers",
		},
		{
			"no jobs",
			"name: w\non: push\n",
			"no jobs",
		},
		{
			"invalid cron",
			"name: w\non:\n  schedule:\n    - cron: \"bad cron\"\njobs:\n  a:\n    steps:\n      - run: x\n",
			"invalid cron expression",
		},
		{
			"job without steps",
			"name: w\non: push\njobs:\n  a: {}\n",
			"no steps",
		},
		{
			"step without run",
			"name: w\non: push\njobs:\n  a:\n    steps:\n      - name: nothing\n",
			"no run command",
		},
		{
			"empty axis",
			"name: w\non: push\njobs:\n  a:\n    strategy:\n      matrix:\n        os: []\n    steps:\n      - run: x\n",
			"has no values",
		},
		{
			"exclude unknown axis",
			"name: w\non: push\njobs:\n  a:\n    strategy:\n      matrix:\n        os: [linux]\n        exclude:\n          - arch: arm\n    steps:\n      - run: x\n",
			"unknown axis",
		},
		{
			"include row without declared axis",
			"name: w\non: push\njobs:\n  a:\n    strategy:\n      matrix:\n        os: [ubuntu-latest]\n        include:\n          - arch: arm64\n    steps:\n      - run: x\n",
			"include row references no declared axis",
		},
		{
			"bad name interpolation",
			"name: w\non: push\njobs:\n  a:\n    name: ${{ matrix.nope }}\n    strategy:\n      matrix:\n        os: [linux]\n    steps:\n      - run: x\n",
			"unknown matrix key",
		},
		{
			"duplicate expanded names",
			"name: w\non: push\njobs:\n  a:\n    name: fixed\n    strategy:\n      matrix:\n        os: [linux, darwin]\n    steps:\n      - run: x\n",
			"duplicate name",
		},
		{
			"bad if condition",
			"name: w\non: push\njobs:\n  a:\n    steps:\n      - run: x\n        if: env.HOME == 'x'\n",
			"unsupported expression",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_IncludeRows(t *testing.T) {
	// Extra keys on an include row are fine as long as one key is a
	// declared axis.
	_, err := Parse([]byte("name: w\non: push\njobs:\n  a:\n    strategy:\n      matrix:\n        os: [ubuntu-latest]\n        include:\n          - os: ubuntu-latest\n            arch: arm64\n    steps:\n      - run: x\n"))
	require.NoError(t, err)

	// A matrix of bare include rows declares no axes at all.
	_, err = Parse([]byte("name: w\non: push\njobs:\n  a:\n    strategy:\n      matrix:\n        include:\n          - arch: arm64\n    steps:\n      - run: x\n"))
	require.NoError(t, err)
}

func TestRenderJobName(t *testing.T) {
	row := map[string]string{"os": "ubuntu-latest", "python-version": "3.9"}

	name, err := RenderJobName(JobSpec{Key: "test", Name: "Test ${{ matrix.os }} / ${{ matrix.python-version }}"}, row)
	require.NoError(t, err)
	assert.Equal(t, "Test ubuntu-latest / 3.9", name)

	// No explicit name: matrix values in sorted-key order keep expanded
	// names unique.
	name, err = RenderJobName(JobSpec{Key: "test"}, row)
	require.NoError(t, err)
	assert.Equal(t, "test (ubuntu-latest, 3.9)", name)

	name, err = RenderJobName(JobSpec{Key: "build"}, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "build", name)
}
