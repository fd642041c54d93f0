package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LinkError reports a write target reached through a symlink or, on
// Windows, a reparse point such as a junction.
type LinkError struct {
	Path    string
	At      string
	Reparse bool
}

func (e *LinkError) Error() string {
	kind := "symlink"
	if e.Reparse {
		kind = "reparse point"
	}
	return fmt.Sprintf("refusing to write %s: %s at %s", e.Path, kind, e.At)
}

// IsLinkError reports whether err came from RejectSymlinkPath.
func IsLinkError(err error) bool {
	var le *LinkError
	return errors.As(err, &le)
}

// RejectSymlinkPath fails if path itself or any existing ancestor directory
// is a link. Output, report and log files all pass through it.
func RejectSymlinkPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	for _, dir := range ancestors(abs) {
		info, err := os.Lstat(dir)
		if errors.Is(err, os.ErrNotExist) {
			// Nothing below a missing component can be a link yet.
			return nil
		}
		if err != nil {
			return fmt.Errorf("inspect %s: %w", dir, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return &LinkError{Path: abs, At: dir}
		}
		reparse, err := isReparsePoint(dir)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", dir, err)
		}
		if reparse {
			return &LinkError{Path: abs, At: dir, Reparse: true}
		}
	}
	return nil
}

// ancestors lists abs and its parents from the root down, excluding the
// volume root itself.
func ancestors(abs string) []string {
	volume := filepath.VolumeName(abs)
	rest := strings.Trim(abs[len(volume):], string(os.PathSeparator))
	if rest == "" {
		return nil
	}
	current := volume + string(os.PathSeparator)
	var out []string
	for _, part := range strings.Split(rest, string(os.PathSeparator)) {
		if part == "" {
			continue
		}
		current = filepath.Join(current, part)
		out = append(out, current)
	}
	return out
}
