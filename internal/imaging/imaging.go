// Package imaging holds the clients for image generation, image editing and
// the object store that hosts generated images.
package imaging

import (
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/oklog/ulid/v2"
)

// Sentinel errors for image operations.
var (
	ErrEmptyImage    = errors.New("image is empty")
	ErrNotConfigured = errors.New("image provider not configured")
)

// ObjectKey builds the storage key for a generated image owned by userID.
func ObjectKey(userID, ext string) string {
	if ext == "" {
		ext = ".png"
	}
	day := time.Now().UTC().Format("2006/01/02")
	return path.Join("creations", userID, day, fmt.Sprintf("%s%s", ulid.Make().String(), ext))
}
