package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var ErrNoFrame = errors.New("no frame available")

// DirectoryDevice reads frames dumped by the kiosk capture daemon. The
// newest image in a directory is the current frame.
type DirectoryDevice struct {
	// FrontDir holds frames of the user-facing camera.
	FrontDir string
	// Dir holds frames of any other camera.
	Dir string
}

func (d DirectoryDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var dirs []string
	if c.Facing == FacingUser {
		dirs = []string{d.FrontDir}
	} else {
		dirs = []string{d.Dir, d.FrontDir}
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		return &directoryStream{dir: dir}, nil
	}

	return nil, fmt.Errorf("no camera directory available for facing=%d", c.Facing)
}

type directoryStream struct {
	dir     string
	mu      sync.Mutex
	stopped bool
}

func (s *directoryStream) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return nil, ErrStreamStopped
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := newestImage(s.dir)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func (s *directoryStream) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

func newestImage(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read camera directory: %w", err)
	}

	var newest string
	var newestMod int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
		default:
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest = e.Name()
			newestMod = mod
		}
	}

	if newest == "" {
		return "", ErrNoFrame
	}
	return filepath.Join(dir, newest), nil
}
