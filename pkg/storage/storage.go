// Package storage keeps captured still pictures on disk: flat directory of
// JPEG files plus a small JSON index tracking the latest shot.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
)

const (
	imagesDir = "images"
	videosDir = "videos"
	indexFile = "index.json"

	ImageExt = ".jpg"
	VideoExt = ".avi"

	filePerm = 0666
	dirPerm  = 0777
)

// File is one stored picture, size pre-humanized for API listings.
type File struct {
	Name    string    `json:"name"`
	Size    string    `json:"size"`
	ModTime time.Time `json:"modTime"`
}

type index struct {
	Count     int       `json:"count"`
	Latest    string    `json:"latest"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Store struct {
	mu  sync.Mutex
	dir string
	idx index
}

func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage dir can not be empty")
	}
	s := &Store{dir: dir}
	for _, d := range []string{s.imageDir(), s.videoDir()} {
		if err := os.MkdirAll(d, dirPerm); err != nil {
			return nil, err
		}
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) imageDir() string {
	return filepath.Join(s.dir, imagesDir)
}

func (s *Store) videoDir() string {
	return filepath.Join(s.dir, videosDir)
}

// VideoPath places a recording target inside the store.
func (s *Store) VideoPath(name string) string {
	return filepath.Join(s.videoDir(), name+VideoExt)
}

// SavePicture writes one JPEG payload under a timestamped name and returns
// that name.
func (s *Store) SavePicture(data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := fmt.Sprintf("%s-%04d%s", time.Now().Format("20060102-150405"), s.idx.Count, ImageExt)
	if err := os.WriteFile(filepath.Join(s.imageDir(), name), data, filePerm); err != nil {
		return "", err
	}

	s.idx.Count++
	s.idx.Latest = name
	s.idx.UpdatedAt = time.Now()
	if err := s.dumpIndex(); err != nil {
		return "", err
	}

	return name, nil
}

// Latest returns the most recently saved picture.
func (s *Store) Latest() (string, []byte, error) {
	s.mu.Lock()
	name := s.idx.Latest
	s.mu.Unlock()

	if name == "" {
		return "", nil, fmt.Errorf("no pictures stored yet")
	}
	data, err := os.ReadFile(filepath.Join(s.imageDir(), name))
	if err != nil {
		return "", nil, fmt.Errorf("picture not found, %w", err)
	}

	return name, data, nil
}

func (s *Store) Get(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.imageDir(), filepath.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("picture not found, %w", err)
	}
	return data, nil
}

func (s *Store) List() ([]File, error) {
	entries, err := os.ReadDir(s.imageDir())
	if err != nil {
		return nil, err
	}
	var res []File
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ImageExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		res = append(res, File{
			Name:    e.Name(),
			Size:    humanize.Bytes(uint64(info.Size())),
			ModTime: info.ModTime(),
		})
	}

	return res, nil
}

func (s *Store) indexPath() string {
	return filepath.Join(s.dir, indexFile)
}

func (s *Store) loadIndex() error {
	data, err := os.ReadFile(s.indexPath())
	if os.IsNotExist(err) {
		return s.dumpIndex()
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.idx)
}

func (s *Store) dumpIndex() error {
	data, err := json.Marshal(&s.idx)
	if err != nil {
		return err
	}
	return os.WriteFile(s.indexPath(), data, filePerm)
}
