package receipt

import (
	"encoding/hex"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/crypto/blake2b"
)

// allowedMimes are the receipt photo formats forwarded for analysis.
var allowedMimes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/heic": true,
	"image/heif": true,
	"image/webp": true,
}

// DetectImage sniffs the image type and rejects anything that is not a
// receipt photo format.
func DetectImage(image []byte) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	detected := mimetype.Detect(image).String()
	if !allowedMimes[detected] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, detected)
	}
	return detected, nil
}

// Digest is the content key of an image, shared by the cache and the archive.
func Digest(image []byte) string {
	sum := blake2b.Sum256(image)
	return hex.EncodeToString(sum[:])
}
