package commands

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
)

// DefaultMaxImageBytes is the largest accepted upload.
const DefaultMaxImageBytes = 5000000

var (
	ErrNotAnImage      = errors.New("file is not an image")
	ErrTooLarge        = errors.New("file is too large")
	ErrUnsupportedType = errors.New("unsupported image type")
)

// extension -> decoded format name
var allowedExtensions = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".gif":  "gif",
}

var canonicalExtensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
}

// ImageInfo describes an accepted upload.
type ImageInfo struct {
	Format string
	Width  int
	Height int
	// Basename is the client filename reduced to its last path element, with characters
	// outside [A-Za-z0-9._-] replaced by '_' and the extension replaced when it does not
	// describe the decoded content.
	Basename string
}

// InspectImage checks an uploaded file the same way for every caller: the header must
// decode as an image, the size must not exceed maxBytes and the decoded format must be
// jpeg, png or gif. The decoded format wins over the client extension.
func InspectImage(data []byte, filename string, maxBytes int64) (*ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}

	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrTooLarge, len(data), maxBytes)
	}

	canonical, ok := canonicalExtensions[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, format)
	}

	return &ImageInfo{
		Format:   format,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Basename: storedBasename(filename, format, canonical),
	}, nil
}

func storedBasename(filename, format, canonical string) string {
	base := filename
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	ext := filepath.Ext(base)
	stem := strings.Map(safeNameRune, strings.TrimSuffix(base, ext))
	if stem == "" || stem == "." || stem == ".." {
		stem = "image"
	}
	if allowedExtensions[strings.ToLower(ext)] == format {
		return stem + ext
	}
	return stem + canonical
}

// safeNameRune keeps stored names usable as a single URL path segment.
func safeNameRune(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
		return r
	}
	return '_'
}
