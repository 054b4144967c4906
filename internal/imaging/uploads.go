package imaging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// URLPrefix is the public path under which stored images are served. An
// image value starting with it is owned by this server and may be deleted.
const URLPrefix = "/images/uploads/"

// Uploads is the local directory that holds stored images.
type Uploads struct {
	Dir string
}

// IsLocal reports whether an image value refers to a file in Uploads.
// Anything else is an externally hosted URL.
func IsLocal(image string) bool {
	return strings.HasPrefix(image, URLPrefix)
}

// Save writes data under a freshly generated name and returns its public path.
func (u Uploads) Save(data []byte, ext string) (string, error) {
	if err := os.MkdirAll(u.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating uploads directory: %w", err)
	}

	name := uuid.NewString() + "." + ext
	f, err := os.OpenFile(filepath.Join(u.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating image file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing image file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing image file: %w", err)
	}

	return URLPrefix + name, nil
}

// Remove deletes the file behind a local image value. Non-local values are
// left alone. It reports whether a file was removed.
func (u Uploads) Remove(image string) (bool, error) {
	if !IsLocal(image) {
		return false, nil
	}

	// Only the base name is used so a crafted value cannot escape Dir.
	name := filepath.Base(strings.TrimPrefix(image, URLPrefix))
	if name == "." || name == "/" || name == ".." {
		return false, nil
	}

	err := os.Remove(filepath.Join(u.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("removing image file: %w", err)
	}
	return true, nil
}

// Path returns the filesystem path of a local image value.
func (u Uploads) Path(image string) string {
	return filepath.Join(u.Dir, filepath.Base(strings.TrimPrefix(image, URLPrefix)))
}
