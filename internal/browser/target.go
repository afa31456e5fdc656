package browser

import (
	"fmt"
	"net/url"
	"path/filepath"
)

// ResolveTarget turns a validation target into a URL the browser can load.
// Anything with a scheme is returned unchanged; a path becomes a file URL.
func ResolveTarget(target string) (string, error) {
	if target == "" {
		return "", fmt.Errorf("empty target")
	}
	// Single letter schemes are Windows drive letters, not URLs.
	if u, err := url.Parse(target); err == nil && len(u.Scheme) > 1 {
		return target, nil
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", target, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}
