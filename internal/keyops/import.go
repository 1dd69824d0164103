package keyops

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/seahorsehq/seahorse/internal/linechan"
	"github.com/seahorsehq/seahorse/internal/proc"
	"github.com/seahorsehq/seahorse/pkg/operation"
)

// ImportResult summarizes a gpg --import run.
type ImportResult struct {
	Fingerprints []string `json:"fingerprints"`
	Considered   int      `json:"considered"`
	Imported     int      `json:"imported"`
	Unchanged    int      `json:"unchanged"`
}

// Import feeds armored key data to gpg --import. The result is an
// *ImportResult.
func (s *Service) Import(ctx context.Context, armored ...string) operation.Operation {
	if len(armored) == 0 {
		return s.complete("import", operation.Errorf(operation.InvalidArgument, "nothing to import"))
	}

	p, err := s.launcher.Launch(ctx, proc.Spec{
		Path:  s.config.Binary,
		Args:  s.config.Args("--status-fd", "1", "--import"),
		Stdin: []byte(strings.Join(armored, "")),
	})
	if err != nil {
		return s.complete("import", operation.NewError(operation.Spawn, s.config.Binary, err))
	}

	op := operation.NewBase("import")
	op.SetCancel(func() {
		if err := p.Terminate(); err != nil {
			slog.Warn("failed to terminate gpg", "pid", p.Pid(), "err", err)
		}
	})
	op.Start()
	op.MarkProgress("Importing keys", 0, 0)
	s.metrics.Track(op)

	go func() {
		result := &ImportResult{}
		stderr := drain(p.Stderr())

		for line := range linechan.Read(p.Stdout(), 0).Lines() {
			parseImportStatus(line, result)
		}

		code, werr := p.Wait()
		msg := <-stderr

		// the keyring changed even when some keys failed
		s.Invalidate()

		switch {
		case werr != nil:
			op.MarkDone(false, operation.NewError(operation.ChildExit, s.config.Binary, werr))
		case code != 0 && len(result.Fingerprints) == 0:
			op.MarkDone(false, operation.Errorf(operation.ChildExit, "%s exited with status %d: %s", s.config.Binary, code, msg))
		default:
			op.SetResult(result, nil)
			op.MarkDone(false, nil)
		}
	}()

	return op
}

func parseImportStatus(line string, result *ImportResult) {
	rest, ok := strings.CutPrefix(line, "[GNUPG:] ")
	if !ok {
		return
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "IMPORT_OK":
		if len(fields) >= 3 {
			result.Fingerprints = append(result.Fingerprints, fields[2])
		}
	case "IMPORT_RES":
		// count no_user_id imported imported_rsa unchanged ...
		if len(fields) >= 6 {
			result.Considered, _ = strconv.Atoi(fields[1])
			result.Imported, _ = strconv.Atoi(fields[3])
			result.Unchanged, _ = strconv.Atoi(fields[5])
		}
	}
}
