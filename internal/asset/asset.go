// Package asset loads the snow flake sprite.
package asset

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// LegacyIconPath is where the sprite was looked up, relative to the working
// directory, before the icon path became configurable.
var LegacyIconPath = filepath.Join("res", "snow.png")

// ResolvePath returns the sprite path to use for a configured icon path. An
// unset path resolves to LegacyIconPath.
func ResolvePath(configured string) string {
	if configured != "" {
		return configured
	}
	return LegacyIconPath
}

// DecodeError reports a sprite that could not be opened or decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to load sprite %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Load decodes the image at path. PNG, JPEG, GIF, BMP, WebP and TIFF are
// supported.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if img.Bounds().Empty() {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("image has no pixels")}
	}
	return img, nil
}

// LoadOrDefault returns the sprite at path, or the built-in sprite when path
// cannot be decoded. The decode error is still returned so the caller can
// report it. An empty path tries LegacyIconPath and falls back silently.
func LoadOrDefault(path string) (image.Image, error) {
	if path == "" {
		if img, err := Load(LegacyIconPath); err == nil {
			return img, nil
		}
		return Default(), nil
	}
	img, err := Load(path)
	if err != nil {
		return Default(), err
	}
	return img, nil
}

// Exists reports whether path names a regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
