package keyops

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/seahorsehq/seahorse/internal/edit"
	"github.com/seahorsehq/seahorse/pkg/operation"
)

const imageEnv = "SEAHORSE_IMAGE_FILE"

// photoViewer copies each image gpg shows to the file named by the
// environment, where the automaton picks it up.
const photoViewer = `cp %i "$` + imageEnv + `"`

// LoadPhotos collects the photo ids of id. The result is an
// []edit.Photo. The scratch directory is removed on every path.
func (s *Service) LoadPhotos(ctx context.Context, id string) operation.Operation {
	k, err := s.Key(ctx, id)
	if err != nil {
		return s.complete("edit.showphoto", err)
	}

	if k.Photos() == 0 {
		op := operation.NewComplete("edit.showphoto", nil)
		op.SetResult([]edit.Photo{}, nil)
		s.metrics.Track(op)
		return op
	}

	dir, err := os.MkdirTemp("", "seahorse-photo-")
	if err != nil {
		return s.complete("edit.showphoto", operation.NewError(operation.Internal, "photo scratch dir", err))
	}
	output := filepath.Join(dir, "photo.jpg")

	automaton, data := edit.LoadPhotos(len(k.UIDs), output)

	return s.editor.Edit(ctx, k.Fingerprint, automaton,
		edit.WithArgs("--photo-viewer", photoViewer),
		edit.WithEnv(imageEnv+"="+output),
		edit.WithResult(func() any { return data.Photos() }),
		edit.WithCleanup(func() {
			if err := os.RemoveAll(dir); err != nil {
				slog.Warn("failed to remove photo scratch dir", "dir", dir, "err", err)
			}
		}),
	)
}
