// Package storage keeps uploaded binary assets (installers, icon images) on disk
// under a single root directory. Records refer to assets by slash-separated paths
// relative to that root.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	ApplicationsDir = "uploads/applications"
	IconsDir        = "uploads/icons"

	ApplicationPrefix = "app-"
	IconPrefix        = "icon-"
)

// maxNameAttempts bounds the collision suffixes tried for one generated name.
const maxNameAttempts = 100

// ErrAssetMissing is returned when a recorded asset is no longer on disk.
var ErrAssetMissing = errors.New("asset missing from storage")

// StoredAsset describes a file written by Save.
type StoredAsset struct {
	FileName     string // generated name on disk
	OriginalName string
	RelativePath string // slash-separated, relative to the storage root
	Size         int64
}

// Store manages asset files below Root.
type Store struct {
	root string
	now  func() time.Time
}

func New(root string) *Store {
	return &Store{root: root, now: time.Now}
}

// Root returns the storage root directory.
func (s *Store) Root() string {
	return s.root
}

// Save writes r to a new file in subdir. The file name is prefix + unix
// milliseconds + the original extension; a numeric suffix is added when the
// name is already taken. A failed write leaves no file behind.
func (s *Store) Save(subdir, prefix, originalName string, r io.Reader) (*StoredAsset, error) {
	dir := s.Resolve(subdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create asset directory %s: %w", subdir, err)
	}

	ext := filepath.Ext(originalName)
	stamp := s.now().UnixMilli()

	var (
		f    *os.File
		name string
		err  error
	)
	for i := 0; i < maxNameAttempts; i++ {
		name = fmt.Sprintf("%s%d%s", prefix, stamp, ext)
		if i > 0 {
			name = fmt.Sprintf("%s%d-%d%s", prefix, stamp, i, ext)
		}
		f, err = os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil || !errors.Is(err, fs.ErrExist) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create asset file: %w", err)
	}

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("write asset file: %w", err)
	}

	return &StoredAsset{
		FileName:     name,
		OriginalName: originalName,
		RelativePath: path.Join(subdir, name),
		Size:         n,
	}, nil
}

// SaveBytes is Save for in-memory content.
func (s *Store) SaveBytes(subdir, prefix, originalName string, content []byte) (*StoredAsset, error) {
	return s.Save(subdir, prefix, originalName, bytes.NewReader(content))
}

// Remove deletes the asset at relativePath. A missing file is not an error.
func (s *Store) Remove(relativePath string) error {
	if relativePath == "" {
		return nil
	}
	err := os.Remove(s.Resolve(relativePath))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Resolve joins relativePath onto the root. It does not touch the filesystem.
func (s *Store) Resolve(relativePath string) string {
	return filepath.Join(s.root, filepath.FromSlash(relativePath))
}

// Open opens a stored asset for reading.
func (s *Store) Open(relativePath string) (*os.File, os.FileInfo, error) {
	if !s.contains(relativePath) {
		return nil, nil, fmt.Errorf("asset path %q escapes storage root", relativePath)
	}
	f, err := os.Open(s.Resolve(relativePath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrAssetMissing
		}
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, ErrAssetMissing
	}
	return f, info, nil
}

// Exists reports whether an asset is present.
func (s *Store) Exists(relativePath string) bool {
	info, err := os.Stat(s.Resolve(relativePath))
	return err == nil && !info.IsDir()
}

// Walk calls fn for every regular file directly inside subdir.
func (s *Store) Walk(subdir string, fn func(relativePath string, info fs.FileInfo) error) error {
	entries, err := os.ReadDir(s.Resolve(subdir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if err := fn(path.Join(subdir, entry.Name()), info); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) contains(relativePath string) bool {
	rel, err := filepath.Rel(s.root, s.Resolve(relativePath))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

var fileTypes = map[string]string{
	".exe": "Windows Executable",
	".msi": "Windows Installer",
	".dmg": "Mac OS Disk Image",
	".pkg": "Mac OS Package",
	".deb": "Debian Package",
	".rpm": "Red Hat Package",
	".apk": "Android Package",
	".ipa": "iOS App",
	".zip": "Archive",
	".rar": "Archive",
	".7z":  "Archive",
	".tar": "Archive",
	".gz":  "Archive",
	".app": "Mac OS Application",
	".dll": "Windows DLL",
	".bin": "Binary File",
	".iso": "Disk Image",
}

// ClassifyType maps a file extension to a human-readable type label.
func ClassifyType(ext string) string {
	if label, ok := fileTypes[strings.ToLower(ext)]; ok {
		return label
	}
	return "Unknown"
}
