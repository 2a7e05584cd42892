package source

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
)

// File is a single document on disk.
type File string

func (f File) String() string { return string(f) }

func (f File) Walk(ctx context.Context, fn WalkFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := readFile(string(f))
	if err != nil {
		return err
	}
	return stopped(fn(doc))
}

func readFile(p string) (Document, error) {
	fh, err := os.Open(p)
	if err != nil {
		return Document{}, err
	}
	defer fh.Close()
	data, err := readDocument(p, fh)
	if err != nil {
		return Document{}, err
	}
	return Document{Name: p, Data: data}, nil
}

// Dir is a directory tree; every .json and .json.gz file below it is a document.
type Dir string

func (d Dir) String() string { return string(d) }

func (d Dir) Walk(ctx context.Context, fn WalkFunc) error {
	// filepath.WalkDir visits entries in lexical order.
	err := filepath.WalkDir(string(d), func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() || !IsDocument(e.Name()) {
			return nil
		}
		doc, err := readFile(p)
		if err != nil {
			return err
		}
		return fn(doc)
	})
	return stopped(err)
}
