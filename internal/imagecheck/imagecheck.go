// Package imagecheck verifies that file contents decode as an image.
package imagecheck

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
)

// ErrNotImage is returned when bytes cannot be decoded as a supported image.
var ErrNotImage = errors.New("not a decodable image")

// Info describes a decoded image.
type Info struct {
	Width  int
	Height int
}

// Check decodes data and returns its dimensions.
func Check(data []byte) (Info, error) {
	if len(data) == 0 {
		return Info{}, fmt.Errorf("%w: file is empty", ErrNotImage)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	b := img.Bounds()
	return Info{Width: b.Dx(), Height: b.Dy()}, nil
}

// SupportedExtension reports whether the file name carries an extension
// imaging knows how to decode.
func SupportedExtension(path string) bool {
	_, err := imaging.FormatFromFilename(path)
	return err == nil
}
