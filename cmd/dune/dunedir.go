package main

import (
	"os"
	"path/filepath"
)

// resolveDuneDir implements §6's DUNE_DIR resolution: the env var when set,
// otherwise a platform-appropriate user-data directory under a "dune"
// subdirectory, mirroring the teacher's own preference for an explicit
// override before falling back to an OS default.
func resolveDuneDir() (string, error) {
	if dir := os.Getenv("DUNE_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base, err = os.UserHomeDir()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(base, "dune"), nil
}

func transformCacheDir(duneDir string) string { return filepath.Join(duneDir, "cache", "transform") }
func moduleCacheDir(duneDir string) string    { return filepath.Join(duneDir, "cache", "modules") }
func upgradeStageDir(duneDir string) string   { return filepath.Join(duneDir, "bin") }
