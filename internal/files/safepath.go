package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the timestamp embedded in generated output names.
const TimestampLayout = "20060102_150405"

// SafePath returns a non-existing path by appending _1.._9, then a UUID suffix.
// If the original path does not exist, it is returned unchanged.
func SafePath(path string) (string, bool, error) {
	if path == "" {
		return "", false, fmt.Errorf("path is empty")
	}
	if _, err := os.Stat(path); err == nil {
		ext := filepath.Ext(path)
		base := strings.TrimSuffix(path, ext)

		for i := 1; i <= 9; i++ {
			candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
			if _, err := os.Stat(candidate); os.IsNotExist(err) {
				return candidate, true, nil
			} else if err != nil {
				return "", false, err
			}
		}

		u, err := uuid.NewV7()
		uuidSuffix := ""
		if err != nil {
			uuidSuffix = uuid.NewString()[:8]
		} else {
			uuidSuffix = u.String()
		}
		return fmt.Sprintf("%s_%s%s", base, uuidSuffix, ext), true, nil
	} else if os.IsNotExist(err) {
		return path, false, nil
	} else {
		return "", false, err
	}
}

// TranslatedName returns "<stem>_translated_<YYYYMMDD_HHMMSS>.json" for the
// given input file.
func TranslatedName(inputPath string, now time.Time) string {
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return fmt.Sprintf("%s_translated_%s.json", stem, now.Format(TimestampLayout))
}

// OutputPath returns a free output path for inputPath inside dir. An empty
// dir selects the input file's directory.
func OutputPath(dir, inputPath string, now time.Time) (string, error) {
	if strings.TrimSpace(inputPath) == "" {
		return "", fmt.Errorf("input path is empty")
	}
	if dir == "" {
		dir = filepath.Dir(inputPath)
	}
	path, _, err := SafePath(filepath.Join(dir, TranslatedName(inputPath, now)))
	if err != nil {
		return "", fmt.Errorf("failed to resolve output path: %w", err)
	}
	return path, nil
}

// ReportPath returns "<output-stem>_report.json" next to outputPath.
func ReportPath(outputPath string) string {
	dir := filepath.Dir(outputPath)
	stem := strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath))
	return filepath.Join(dir, stem+"_report.json")
}
