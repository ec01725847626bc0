package commands

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	"github.com/jo-hoe/goregister/internal/backend/commandstructure"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// hasCorrectPngSignature checks whether the provided data begins with a valid PNG signature
func hasCorrectPngSignature(data []byte) bool {
	// PNG signature: 0x89 'P' 'N' 'G' 0x0D 0x0A 0x1A 0x0A
	if len(data) < 8 {
		return false
	}
	expected := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	return bytes.Equal(data[:8], expected)
}

// PngConverterCommandName is the registry key.
const PngConverterCommandName = "PngConverterCommand"

// PngConverterCommand re-encodes any decodable raster image as PNG
type PngConverterCommand struct {
	name string
}

// NewPngConverterCommand creates a new PNG converter command
func NewPngConverterCommand(params map[string]any) (commandstructure.Command, error) {
	return &PngConverterCommand{
		name: PngConverterCommandName,
	}, nil
}

// Name returns the command name
func (c *PngConverterCommand) Name() string {
	return c.name
}

func (c *PngConverterCommand) Execute(imageData []byte) ([]byte, error) {
	if hasCorrectPngSignature(imageData) {
		slog.Debug("PngConverterCommand: PNG detected; returning original bytes")
		return imageData, nil
	}

	img, currentFormat, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	slog.Debug("PngConverterCommand: decoded raster image",
		"current_format", currentFormat,
		"orig_width", img.Bounds().Dx(),
		"orig_height", img.Bounds().Dy())

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image to PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(PngConverterCommandName, NewPngConverterCommand); err != nil {
		panic(fmt.Sprintf("failed to register PngConverterCommand: %v", err))
	}
}
