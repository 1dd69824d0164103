package proc

import (
	"context"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/seahorsehq/seahorse/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecLauncher(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	l := NewExecLauncher(m)

	for _, tc := range []struct {
		name   string
		spec   Spec
		input  string
		stdout string
		stderr string
		code   int
	}{
		{
			name:   "Pipe",
			spec:   Spec{Path: "/bin/sh", Args: []string{"-c", `read x; echo "got $x"; echo oops >&2; exit 3`}},
			input:  "hello\n",
			stdout: "got hello\n",
			stderr: "oops\n",
			code:   3,
		},
		{
			name:   "FixedStdin",
			spec:   Spec{Path: "/bin/sh", Args: []string{"-c", "cat"}, Stdin: []byte("HOST example.org\n")},
			stdout: "HOST example.org\n",
		},
		{
			name:   "Env",
			spec:   Spec{Path: "/bin/sh", Args: []string{"-c", `echo "$SEAHORSE_IMAGE_FILE"`}, Env: []string{"SEAHORSE_IMAGE_FILE=/tmp/x.jpg"}, Stdin: []byte{}},
			stdout: "/tmp/x.jpg\n",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p, err := l.Launch(context.Background(), tc.spec)
			require.NoError(t, err)

			if p.Stdin() != nil {
				_, err = io.WriteString(p.Stdin(), tc.input)
				require.NoError(t, err)
				require.NoError(t, p.Stdin().Close())
			}

			stdout, err := io.ReadAll(p.Stdout())
			require.NoError(t, err)
			stderr, err := io.ReadAll(p.Stderr())
			require.NoError(t, err)

			code, err := p.Wait()
			require.NoError(t, err)

			assert.Equal(t, tc.stdout, string(stdout))
			assert.Equal(t, tc.stderr, string(stderr))
			assert.Equal(t, tc.code, code)
		})
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ProcessesSpawned.WithLabelValues("sh")))
}

func TestExecLauncherSpawnError(t *testing.T) {
	l := NewExecLauncher(nil)

	_, err := l.Launch(context.Background(), Spec{Path: "/nonexistent/gpgkeys_hkp"})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Launch(ctx, Spec{Path: "/bin/sh"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFake(t *testing.T) {
	f := NewFake()

	go func() {
		_, _ = io.WriteString(f.Out, "VERSION 0\n")
		f.Exit(0)
	}()

	out, err := io.ReadAll(f.Stdout())
	require.NoError(t, err)
	assert.Equal(t, "VERSION 0\n", string(out))

	code, err := f.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	assert.NoError(t, f.Terminate())
	<-f.Terminated()

	code, _ = f.Wait()
	assert.Equal(t, 0, code)
}
