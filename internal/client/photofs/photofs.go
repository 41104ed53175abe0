// Package photofs keeps photo files on disk: a full-size JPEG named by an
// opaque identifier and a thumbnail with the same name and ThumbPrefix.
package photofs

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/phototimeline/internal/client/imaging"
	"github.com/dmitrijs2005/phototimeline/internal/client/models"
	"github.com/dmitrijs2005/phototimeline/internal/filex"
	"github.com/google/uuid"
)

const ThumbPrefix = "thumb_"

var ErrBadName = errors.New("invalid photo name")

type Store struct {
	dir    string
	imager imaging.Imager
}

func New(dir string, imager imaging.Imager) (*Store, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &Store{dir: abs, imager: imager}, nil
}

func (s *Store) Dir() string { return s.dir }

// PhotoFor returns the file pair for an opaque name.
func PhotoFor(name string) models.Photo {
	return models.Photo{FullName: name, ThumbName: ThumbPrefix + name}
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return nil
}

// Path returns the absolute path of a stored file.
func (s *Store) Path(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// Save stores img under a fresh name.
func (s *Store) Save(img image.Image) (models.Photo, error) {
	full, err := s.imager.EncodeJPEG(img, imaging.LocalQuality)
	if err != nil {
		return models.Photo{}, err
	}
	return s.write(uuid.NewString(), full, img)
}

// Import stores already encoded bytes under a fresh name.
func (s *Store) Import(data []byte) (models.Photo, error) {
	return s.SaveJPEG(uuid.NewString(), data)
}

// SaveJPEG stores already encoded bytes under name and derives the thumbnail.
func (s *Store) SaveJPEG(name string, data []byte) (models.Photo, error) {
	img, err := imaging.Decode(data)
	if err != nil {
		return models.Photo{}, err
	}
	return s.write(name, data, img)
}

func (s *Store) write(name string, full []byte, img image.Image) (models.Photo, error) {
	p := PhotoFor(name)
	fullPath, err := s.Path(p.FullName)
	if err != nil {
		return models.Photo{}, err
	}
	thumbPath, err := s.Path(p.ThumbName)
	if err != nil {
		return models.Photo{}, err
	}

	thumb, err := s.imager.EncodeJPEG(s.imager.Resize(img, imaging.ThumbnailSize), imaging.LocalQuality)
	if err != nil {
		return models.Photo{}, err
	}

	if err := filex.WriteFileAtomic(fullPath, full, 0o600); err != nil {
		return models.Photo{}, err
	}
	if err := filex.WriteFileAtomic(thumbPath, thumb, 0o600); err != nil {
		_ = os.Remove(fullPath)
		return models.Photo{}, err
	}
	return p, nil
}

// Read returns the full-size JPEG of p.
func (s *Store) Read(p models.Photo) ([]byte, error) {
	path, err := s.Path(p.FullName)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Remove deletes both files of every photo. Missing files are ignored.
func (s *Store) Remove(photos ...models.Photo) error {
	var errs []error
	for _, p := range photos {
		for _, name := range []string{p.FullName, p.ThumbName} {
			path, err := s.Path(name)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
