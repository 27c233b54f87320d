package session

import (
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// sessionDirPrefix is how the scanner names its recording directories,
// e.g. Scan-20250521-0200. Names sort chronologically, so newest-first is a
// reverse name sort.
const sessionDirPrefix = "Scan-"

// IsSessionDirName reports whether a directory name looks like a recorded
// session.
func IsSessionDirName(name string) bool {
	return strings.HasPrefix(name, sessionDirPrefix)
}

// FindAll returns the session directory names under dataDir, newest first.
func FindAll(dataDir string) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list data directory %s", dataDir)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() && IsSessionDirName(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Latest returns the newest session directory name under dataDir.
func Latest(dataDir string) (string, error) {
	names, err := FindAll(dataDir)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", errors.Errorf("no sessions found in %s", dataDir)
	}
	return names[0], nil
}
