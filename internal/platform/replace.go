package platform

import (
	"fmt"
	"os"
)

// backupSuffix is appended to the destination while a replacement is in flight.
const backupSuffix = ".backup"

// ReplaceDir moves src into place at dst. An existing dst is first renamed
// to a backup, which is restored if the final rename fails and removed on
// success.
func ReplaceDir(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source %s: %w", src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", src)
	}

	backup := ""
	if _, err := os.Stat(dst); err == nil {
		backup = dst + backupSuffix
		_ = os.RemoveAll(backup)
		if err := os.Rename(dst, backup); err != nil {
			return fmt.Errorf("backing up %s: %w", dst, err)
		}
	}

	if err := os.Rename(src, dst); err != nil {
		if backup != "" {
			if rbErr := os.Rename(backup, dst); rbErr != nil {
				return fmt.Errorf("installing %s: %w (rollback failed: %v)", dst, err, rbErr)
			}
		}
		return fmt.Errorf("installing %s: %w", dst, err)
	}

	if backup != "" {
		_ = os.RemoveAll(backup)
	}
	return nil
}
