package edit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/seahorsehq/seahorse/internal/linechan"
	"github.com/seahorsehq/seahorse/internal/proc"
	"github.com/seahorsehq/seahorse/pkg/operation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// converse plays gpg: for every status line it waits for the expected
// reply on stdin, "-" expects none.
func converse(t *testing.T, f *proc.Fake, steps []step) <-chan []string {
	got := make(chan []string, 1)

	go func() {
		input := linechan.Read(f.Input(), 0)
		var replies []string

		for _, s := range steps {
			if _, err := io.WriteString(f.Out, statusPrefix+s.status+"\n"); err != nil {
				break
			}
			if s.reply == "-" {
				continue
			}
			select {
			case line, ok := <-input.Lines():
				if !ok {
					got <- replies
					return
				}
				replies = append(replies, line)
			case <-time.After(time.Second):
				got <- replies
				return
			}
		}

		got <- replies
	}()

	return got
}

func wait(t *testing.T, op operation.Operation) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	select {
	case <-op.Done():
	case <-ctx.Done():
		t.Fatal("operation did not finish")
	}
}

func TestEditSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	launcher := proc.NewMockLauncher(ctrl)

	config := &Config{Binary: "gpg", Homedir: "/home/alice/.gnupg"}
	editor := New(config, launcher, nil)

	for _, tc := range []struct {
		name      string
		automaton Automaton
		steps     []step
		stderr    string
		exit      int
		replies   []string
		code      operation.Code
		cancelled bool
	}{
		{
			name:      "AlreadySigned",
			automaton: Sign(1, CheckNoAnswer, 0),
			steps:     []step{p("uid 1"), p("sign"), p(QuitCmd)},
			replies:   []string{"uid 1", "sign", QuitCmd},
		},
		{
			name:      "Trust",
			automaton: Trust(3),
			steps: []step{
				{status: "KEY_CONSIDERED AAAA 0", reply: "-"},
				p("trust"),
				line("edit_ownertrust.value", "3"),
				p(QuitCmd),
				save(),
			},
			replies: []string{"trust", "3", QuitCmd, Yes},
		},
		{
			name:      "ExitStatus",
			automaton: Disable(true),
			steps:     []step{p("disable")},
			stderr:    "gpg: key AAAA: secret key not available\n",
			exit:      2,
			replies:   []string{"disable"},
			code:      operation.ChildExit,
		},
		{
			name:      "Protocol",
			automaton: Primary(1),
			steps:     []step{boolean("keyedit.delsig.unknown", ""), p(QuitCmd)},
			replies:   []string{"", QuitCmd},
			code:      operation.Protocol,
		},
		{
			name:      "PasswdCancelled",
			automaton: Passwd(),
			steps:     []step{p("passwd"), p(QuitCmd)},
			replies:   []string{"passwd", QuitCmd},
			cancelled: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := proc.NewFake()
			launcher.EXPECT().
				Launch(gomock.Any(), proc.Spec{
					Path: "gpg",
					Args: []string{
						"--batch", "--no-tty", "--with-colons", "--homedir", "/home/alice/.gnupg",
						"--command-fd", "0", "--status-fd", "1", "--edit-key", "AAAABBBB",
					},
				}).
				Return(f, nil).
				Times(1)

			op := editor.Edit(context.Background(), "AAAABBBB", tc.automaton)
			assert.Equal(t, "edit."+tc.automaton.Name(), op.Kind())

			replies := <-converse(t, f, tc.steps)
			if tc.stderr != "" {
				_, err := io.WriteString(f.Err, tc.stderr)
				require.NoError(t, err)
			}
			f.Exit(tc.exit)

			wait(t, op)
			assert.Equal(t, tc.replies, replies)
			assert.Equal(t, tc.cancelled, op.IsCancelled())

			if tc.code == 0 {
				assert.NoError(t, op.Err())
				return
			}
			code, ok := operation.CodeOf(op.Err())
			require.True(t, ok)
			assert.Equal(t, tc.code, code)
		})
	}
}

func TestEditExitMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	launcher := proc.NewMockLauncher(ctrl)
	editor := New(&Config{Binary: "gpg"}, launcher, nil)

	f := proc.NewFake()
	launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).Return(f, nil)

	op := editor.Edit(context.Background(), "AAAABBBB", Disable(false))
	go func() {
		_, _ = io.WriteString(f.Err, "gpg: no such key\n")
		f.Exit(2)
	}()

	wait(t, op)
	assert.ErrorContains(t, op.Err(), "gpg: no such key")
}

func TestEditCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	launcher := proc.NewMockLauncher(ctrl)
	editor := New(&Config{Binary: "gpg"}, launcher, nil)

	f := proc.NewFake()
	launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).Return(f, nil)

	cleaned := make(chan struct{})
	op := editor.Edit(context.Background(), "AAAABBBB", Passwd(), WithCleanup(func() { close(cleaned) }))
	require.True(t, op.IsRunning())

	op.Cancel()

	assert.True(t, op.IsDone())
	assert.True(t, op.IsCancelled())
	assert.NoError(t, op.Err())

	select {
	case <-f.Terminated():
	case <-time.After(time.Second):
		t.Fatal("gpg was not terminated")
	}
	select {
	case <-cleaned:
	case <-time.After(time.Second):
		t.Fatal("cleanup did not run")
	}
}

func TestEditSpawnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	launcher := proc.NewMockLauncher(ctrl)
	editor := New(&Config{Binary: "gpg"}, launcher, nil)

	launcher.EXPECT().Launch(gomock.Any(), gomock.Any()).Return(nil, errors.New("exec: not found"))

	cleaned := false
	op := editor.Edit(context.Background(), "AAAABBBB", Sign(1, CheckNone, 0),
		WithSigner("CCCCDDDD"),
		WithCleanup(func() { cleaned = true }),
	)

	assert.True(t, op.IsDone())
	assert.True(t, cleaned)

	code, ok := operation.CodeOf(op.Err())
	require.True(t, ok)
	assert.Equal(t, operation.Spawn, code)
}

func TestEditResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	launcher := proc.NewMockLauncher(ctrl)
	editor := New(&Config{Binary: "gpg", LibexecDir: "/usr/libexec/seahorse"}, launcher, nil)

	f := proc.NewFake()
	launcher.EXPECT().
		Launch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, spec proc.Spec) (proc.Process, error) {
			require.NotEmpty(t, spec.Env)
			assert.Contains(t, spec.Env[len(spec.Env)-1], "PATH=/usr/libexec/seahorse")
			assert.Contains(t, spec.Env, "SEAHORSE_IMAGE_FILE=/tmp/x.jpg")
			return f, nil
		})

	op := editor.Edit(context.Background(), "AAAABBBB", Primary(1),
		WithEnv("SEAHORSE_IMAGE_FILE=/tmp/x.jpg"),
		WithResult(func() any { return fmt.Sprintf("uid %d", 1) }),
	)

	replies := <-converse(t, f, []step{p("uid 1"), p("primary"), p(QuitCmd), save()})
	f.Exit(0)

	wait(t, op)
	assert.Equal(t, []string{"uid 1", "primary", QuitCmd, Yes}, replies)
	assert.Equal(t, "uid 1", op.Result())
}
