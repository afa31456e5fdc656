package reporting

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// ScreenshotStore writes failure screenshots into an artifact directory.
type ScreenshotStore struct {
	dir string
}

// NewScreenshotStore returns a store rooted at dir. The directory is created
// on first write.
func NewScreenshotStore(dir string) *ScreenshotStore {
	return &ScreenshotStore{dir: dir}
}

// WriteScreenshot stores png as failure-<id>.png and returns its path.
func (s *ScreenshotStore) WriteScreenshot(id uuid.UUID, png []byte) (string, error) {
	if len(png) == 0 {
		return "", fmt.Errorf("empty screenshot for report %s", id)
	}
	path := filepath.Join(s.dir, fmt.Sprintf("failure-%s.png", id))
	if err := LockAndWrite(path, png); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, nil
}
