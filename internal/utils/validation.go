package utils

import (
	"fmt"

	"github.com/aelpxy/searxops/internal/constants"
)

// snapshot names become directory names under the backup root
func IsValidSnapshotName(name string) bool {
	if len(name) < constants.MinSnapshotNameLength || len(name) > constants.MaxSnapshotNameLength {
		return false
	}
	if name[0] == '.' || name[0] == '-' {
		return false
	}
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.') {
			return false
		}
	}
	return true
}

func ValidateSnapshotName(name string) error {
	if !IsValidSnapshotName(name) {
		return fmt.Errorf("invalid snapshot name %q: use letters, digits, '.', '_' or '-' (max %d chars, no leading '.' or '-')",
			name, constants.MaxSnapshotNameLength)
	}
	return nil
}
