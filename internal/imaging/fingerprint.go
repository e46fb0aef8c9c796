package imaging

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
)

// Fingerprint returns the 64-bit difference hash of img as 16 hex digits.
// It identifies repeat scans in logs without exposing the file name.
func Fingerprint(img image.Image) (string, error) {
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return "", fmt.Errorf("dhash: %w", err)
	}
	return fmt.Sprintf("%016x", hash.GetHash()), nil
}
