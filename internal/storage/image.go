package storage

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register webp decoder for image.Decode
)

const (
	maxImageWidth = 1500
	jpegQuality   = 75

	// normalizedContentType is what every stored image is re-encoded to.
	normalizedContentType = "image/jpeg"
	normalizedExt         = ".jpg"
)

// normalizeImage decodes data, shrinks it to maxImageWidth without enlarging
// and re-encodes it as JPEG.
func normalizeImage(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", ErrInvalidInput, err)
	}

	if img.Bounds().Dx() > maxImageWidth {
		img = imaging.Resize(img, maxImageWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("%w: encode image: %v", ErrInvalidInput, err)
	}
	return buf.Bytes(), nil
}

// normalizedKey swaps the extension of the last path segment for ".jpg".
func normalizedKey(key string) string {
	dir, file := path.Split(key)
	if ext := path.Ext(file); ext != "" {
		file = strings.TrimSuffix(file, ext)
	}
	return dir + file + normalizedExt
}
