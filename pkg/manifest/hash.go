package manifest

import (
	"crypto/sha512"
	"encoding/base64"
	"io"

	"github.com/sitepatch/sitepatch/pkg/errors"
)

// HashFile returns the sha512 hash of the file at the given path.
func HashFile(path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", errors.WithContext(err, "open")
	}
	defer f.Close()

	hasher := sha512.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", errors.WithContext(err, "read")
	}
	return base64.StdEncoding.EncodeToString(hasher.Sum(nil)), nil
}
