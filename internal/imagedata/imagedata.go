// Package imagedata decodes uploaded sign photos and describes their format.
package imagedata

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrEmpty    = errors.New("image is empty")
	ErrEncoding = errors.New("image is not valid base64")
)

var dataURIPrefix = regexp.MustCompile(`^data:[\w.+-]+/[\w.+-]+;base64,`)

// Decode accepts either bare base64 or a data URI ("data:image/png;base64,...").
func Decode(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = dataURIPrefix.ReplaceAllString(s, "")
	if s == "" {
		return nil, ErrEmpty
	}

	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Some clients strip padding.
		if b, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
		}
	}
	if len(b) == 0 {
		return nil, ErrEmpty
	}
	return b, nil
}

// Format is the sniffed content type of an image.
type Format struct {
	ContentType string // e.g. "image/jpeg"
	Extension   string // e.g. ".jpg"
}

// Detect sniffs the content type from the leading bytes.
func Detect(b []byte) Format {
	m := mimetype.Detect(b)
	ct, _, _ := strings.Cut(m.String(), ";")
	return Format{ContentType: ct, Extension: m.Extension()}
}

// IsImage reports whether the bytes look like a raster image.
func IsImage(b []byte) bool {
	return strings.HasPrefix(Detect(b).ContentType, "image/")
}

// DataURI inlines the image for the model request.
func DataURI(b []byte) string {
	return "data:" + Detect(b).ContentType + ";base64," + base64.StdEncoding.EncodeToString(b)
}
