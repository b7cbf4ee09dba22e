package storage

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const backupTimestampLayout = "20060102_150405.000000000"

// backupFile snapshots the current file into the backup area before a
// mutating write. Absent files (first write) need no snapshot.
func (s *Store) backupFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	timestamp := time.Now().UTC().Format(backupTimestampLayout)
	backupPath := filepath.Join(s.backupDir, stem+"_"+timestamp+ext)

	return copyFile(path, backupPath)
}

// latestBackup returns the newest snapshot for a primary file, if any. The
// timestamp layout sorts lexicographically.
func (s *Store) latestBackup(path string) (string, bool) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return "", false
	}

	var candidates []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(name, stem+"_") && strings.HasSuffix(name, ext) {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Strings(candidates)
	return filepath.Join(s.backupDir, candidates[len(candidates)-1]), true
}

func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
