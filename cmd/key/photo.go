package key

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/seahorsehq/seahorse/cmd/config"
	"github.com/seahorsehq/seahorse/cmd/util"
	"github.com/seahorsehq/seahorse/internal/edit"
	"github.com/spf13/cobra"
)

func PhotoCmd(rt *config.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photo",
		Short: "Manage photo ids",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <keyid> <jpeg>",
		Short: "Attach a jpeg photo id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}

			op := rt.Services().Keys.AddPhoto(util.Context(cmd), args[0], path)
			return run(cmd, rt, args[0], op)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <keyid> <uid>",
		Short: "Delete a photo id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := index("uid", args[1])
			if err != nil {
				return err
			}

			op := rt.Services().Keys.DeletePhoto(util.Context(cmd), args[0], uid)
			return run(cmd, rt, args[0], op)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "primary <keyid> <uid>",
		Short: "Make a photo id the primary user id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := index("uid", args[1])
			if err != nil {
				return err
			}

			op := rt.Services().Keys.PrimaryPhoto(util.Context(cmd), args[0], uid)
			return run(cmd, rt, args[0], op)
		},
	})

	cmd.AddCommand(LoadPhotosCmd(rt))

	return cmd
}

type saved struct {
	UID  int    `json:"uid"`
	Path string `json:"path"`
}

var loadExample = `
# Save every photo id of a key to the current directory
seahorse key photo load 0123456789ABCDEF --dir .`

func LoadPhotosCmd(rt *config.Runtime) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:     "load <keyid>",
		Short:   "Save the photo ids of a key as jpeg files",
		Example: loadExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := rt.Services().Keys.LoadPhotos(util.Context(cmd), args[0])
			if err := util.Wait(cmd, op); err != nil {
				return err
			}

			photos, _ := op.Result().([]edit.Photo)

			files := make([]saved, 0, len(photos))
			for _, p := range photos {
				path := filepath.Join(dir, fmt.Sprintf("%s-%d.jpg", args[0], p.UID))
				if err := os.WriteFile(path, p.Data, 0o644); err != nil {
					return err
				}
				files = append(files, saved{UID: p.UID, Path: path})
			}

			return util.Print(cmd, rt.Format, files, func(w io.Writer) {
				util.Row(w, "UID", "PATH")
				for _, f := range files {
					util.Row(w, f.UID, f.Path)
				}
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "directory to write the photos to")

	return cmd
}
