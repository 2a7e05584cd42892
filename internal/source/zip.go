package source

import (
	"context"
	"fmt"
	"sort"

	"github.com/klauspost/compress/zip"
)

// Zip is a zip archive of documents, such as a Cricsheet bulk download.
type Zip string

func (z Zip) String() string { return string(z) }

func (z Zip) Walk(ctx context.Context, fn WalkFunc) error {
	r, err := zip.OpenReader(string(z))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	files := make([]*zip.File, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !IsDocument(f.Name) {
			continue
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", f.Name, err)
		}
		data, err := readDocument(f.Name, rc)
		rc.Close()
		if err != nil {
			return err
		}
		if err := fn(Document{Name: string(z) + "!" + f.Name, Data: data}); err != nil {
			return stopped(err)
		}
	}
	return nil
}
