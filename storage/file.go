package storage

import (
	"context"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"os"
	"strings"
)

const fileExt = ".json"

// File stores every key as its own JSON file on a billy filesystem.
// Writes go to a temporary file first which is then renamed over the
// target, so a reader never observes a half written value.
type File struct {
	fs billy.Filesystem
}

func NewFile(fs billy.Filesystem) *File {
	return &File{fs: fs}
}

func OpenFile(dir string) (*File, error) {
	fs := osfs.New(dir)
	if err := fs.MkdirAll(".", 0755); err != nil {
		return nil, errors.Wrapf(err, "could not create storage directory %s", dir)
	}

	return NewFile(fs), nil
}

func (s *File) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, err := fileName(key)
	if err != nil {
		return nil, err
	}

	b, err := util.ReadFile(s.fs, name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}

		return nil, errors.Wrapf(err, "could not read %s", name)
	}

	return b, nil
}

func (s *File) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name, err := fileName(key)
	if err != nil {
		return err
	}

	tmp := name + "." + uuid.NewString() + ".tmp"
	if err := util.WriteFile(s.fs, tmp, value, 0644); err != nil {
		_ = s.fs.Remove(tmp)
		return errors.Wrapf(err, "could not write %s", tmp)
	}

	if err := s.fs.Rename(tmp, name); err != nil {
		_ = s.fs.Remove(tmp)
		return errors.Wrapf(err, "could not move %s to %s", tmp, name)
	}

	return nil
}

func fileName(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", errors.Wrapf(ErrInvalidKey, "%q", key)
	}

	return key + fileExt, nil
}
