// Package upload decodes embedded data-URI images and writes them to
// the uploads directory.
package upload

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Skotchmaster/digital_store/internal/apperr"
)

var dataURIRe = regexp.MustCompile(`^data:(.+);base64,(.+)$`)

// Decode splits a data:<mime>;base64,<payload> string into raw bytes
// and a file extension derived from the MIME subtype.
func Decode(dataURI string) ([]byte, string, error) {
	m := dataURIRe.FindStringSubmatch(dataURI)
	if m == nil {
		return nil, "", apperr.ErrInvalidImage
	}

	ext := m[1]
	if i := strings.Index(ext, "/"); i >= 0 {
		ext = ext[i+1:]
	}

	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", apperr.ErrInvalidImage, err)
	}

	return data, ext, nil
}

// Saver persists decoded images under Dir and hands back the relative
// reference path stored on the image row.
type Saver struct {
	Dir string
}

// Save writes the payload as <name>.<ext>. The directory is created if
// absent; callers keep names collision-free by embedding the product
// id plus an index or timestamp.
func (s *Saver) Save(dataURI, name string) (string, error) {
	data, ext, err := Decode(dataURI)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	filename := name + "." + ext
	if err := os.WriteFile(filepath.Join(s.Dir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}

	return "uploads/" + filename, nil
}
