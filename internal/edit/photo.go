package edit

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
)

type photoAddData struct {
	path string
}

const (
	photoAddCommand State = Custom + iota
	photoAddURI
	photoAddBig
)

var photoAddWorkflow = &Workflow[photoAddData]{
	Name: "addphoto",
	Rules: []Rule[photoAddData]{
		{From: Start, Status: GetLine, Prompt: Prompt, To: photoAddCommand},
		{From: photoAddCommand, Status: GetLine, Prompt: "photoid.jpeg.add", To: photoAddURI},
		{From: photoAddURI, Status: GetLine, Prompt: Prompt, To: Quit},
		{From: photoAddURI, Status: GetBool, Prompt: "photoid.jpeg.size", To: photoAddBig},
		// asked for a file again, gpg could not use the one we gave
		{From: photoAddURI, Status: GetLine, Prompt: "photoid.jpeg.add", To: Error, Err: ErrInvalidFile},
		{From: photoAddBig, Status: GetLine, Prompt: Prompt, To: Quit},
		{From: photoAddBig, Status: GetLine, Prompt: "photoid.jpeg.add", To: Error, Err: ErrInvalidFile},
	},
	Replies: map[State]Reply[photoAddData]{
		photoAddCommand: Line[photoAddData]("addphoto"),
		photoAddURI:     func(d *photoAddData) (string, bool) { return d.path, true },
		photoAddBig:     Line[photoAddData](Yes),
	},
}

// AddPhoto attaches the jpeg at path as a photo id.
func AddPhoto(path string) Automaton {
	return NewMachine(photoAddWorkflow, &photoAddData{path: path})
}

// Photo is an image gpg showed for one user id.
type Photo struct {
	UID  int    `json:"uid"`
	Data []byte `json:"data"`
}

type PhotoLoad struct {
	uid    int
	count  int
	output string
	photos []Photo
}

// Photos returns the collected images in user id order.
func (d *PhotoLoad) Photos() []Photo {
	return d.photos
}

// collect takes the file the photo viewer wrote for the current user
// id, if any.
func (d *PhotoLoad) collect() {
	data, err := os.ReadFile(d.output)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		slog.Warn("failed to read photo", "uid", d.uid, "path", d.output, "err", err)
		return
	}

	d.photos = append(d.photos, Photo{UID: d.uid, Data: data})
	if err := os.Remove(d.output); err != nil {
		slog.Warn("failed to remove photo", "path", d.output, "err", err)
	}
}

const (
	photoLoadSelect State = Custom + iota
	photoLoadShow
	photoLoadDeselect
)

var photoLoadWorkflow = &Workflow[PhotoLoad]{
	Name: "showphoto",
	Rules: []Rule[PhotoLoad]{
		{From: Start, Status: GetLine, Prompt: Prompt, To: photoLoadSelect},
		{From: photoLoadSelect, Status: GetLine, Prompt: Prompt, To: photoLoadShow},
		{From: photoLoadShow, Status: GetLine, Prompt: Prompt, To: photoLoadDeselect, Effect: (*PhotoLoad).collect},
		{
			From:   photoLoadDeselect,
			Status: GetLine,
			Prompt: Prompt,
			When:   func(d *PhotoLoad) bool { return d.uid < d.count },
			Effect: func(d *PhotoLoad) { d.uid++ },
			To:     photoLoadSelect,
		},
		{From: photoLoadDeselect, Status: GetLine, Prompt: Prompt, To: Quit},
	},
	Replies: map[State]Reply[PhotoLoad]{
		photoLoadSelect:   func(d *PhotoLoad) (string, bool) { return fmt.Sprintf("uid %d", d.uid), true },
		photoLoadShow:     Line[PhotoLoad]("showphoto"),
		photoLoadDeselect: func(d *PhotoLoad) (string, bool) { return fmt.Sprintf("uid %d", d.uid), true },
	},
}

// LoadPhotos walks all count user ids and collects the images the
// photo viewer copies to output.
func LoadPhotos(count int, output string) (Automaton, *PhotoLoad) {
	data := &PhotoLoad{uid: 1, count: count, output: output}
	return NewMachine(photoLoadWorkflow, data), data
}
