package scaffold

import (
	"fmt"
	"os"
)

// CheckExisting checks if rook.yml or the samples/ directory already exist.
// Returns an error if they do, nil otherwise.
func CheckExisting() error {
	var existingFiles []string

	if _, err := os.Stat("rook.yml"); err == nil {
		existingFiles = append(existingFiles, "rook.yml")
	}

	if info, err := os.Stat("samples"); err == nil && info.IsDir() {
		existingFiles = append(existingFiles, "samples/")
	}

	if len(existingFiles) > 0 {
		errMsg := "project already initialized\n\nFound existing"
		if len(existingFiles) == 1 {
			errMsg += fmt.Sprintf(": %s", existingFiles[0])
		} else {
			errMsg += " files:\n"
			for _, file := range existingFiles {
				errMsg += fmt.Sprintf("  - %s\n", file)
			}
		}
		errMsg += "\nUse 'rook init --force' to reinitialize (this will overwrite existing configuration)"

		return fmt.Errorf("%s", errMsg)
	}

	return nil
}
