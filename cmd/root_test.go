package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/seahorsehq/seahorse/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd(t *testing.T) {
	tcs := []struct {
		name    string
		args    []string
		wantErr string
		check   func(t *testing.T, stdout string)
	}{
		{
			name: "VersionText",
			args: []string{"version"},
			check: func(t *testing.T, stdout string) {
				assert.Equal(t, "seahorse "+version.Full()+"\n", stdout)
			},
		},
		{
			name: "VersionJSON",
			args: []string{"version", "-o", "json"},
			check: func(t *testing.T, stdout string) {
				var v map[string]string
				require.NoError(t, json.Unmarshal([]byte(stdout), &v))
				assert.Equal(t, version.Short(), v["version"])
			},
		},
		{
			name:    "BadOutput",
			args:    []string{"version", "-o", "xml"},
			wantErr: "unrecognized output format: xml",
		},
		{
			name:    "BadLogLevel",
			args:    []string{"version", "--log-level", "loud"},
			wantErr: "loud",
		},
		{
			name:    "MissingConfigFile",
			args:    []string{"version", "--config", "/nonexistent/seahorse.yaml"},
			wantErr: "seahorse.yaml",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			cmd := NewCmd()

			stdout := &bytes.Buffer{}
			cmd.SetOut(stdout)
			cmd.SetErr(io.Discard)
			cmd.SetArgs(tc.args)

			err := cmd.Execute()
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			tc.check(t, stdout.String())
		})
	}
}

func TestSubcommands(t *testing.T) {
	cmd := NewCmd()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{"serve", "search", "fetch", "keys", "key", "migrate", "version"} {
		assert.Contains(t, names, want)
	}
}
