package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"
)

// releaseManifest is the shape of the JSON document releaseEndpoint
// serves: a version string plus one download URL per "os_arch" asset key.
type releaseManifest struct {
	Version string            `json:"version"`
	Assets  map[string]string `json:"assets"`
}

// releaseSource abstracts "where upgrade gets its manifest and asset
// bytes from" so tests can substitute a fake source instead of reaching
// the network, per SPEC_FULL.md's "real, testable staging step."
type releaseSource interface {
	LatestManifest(ctx context.Context) (releaseManifest, error)
	DownloadAsset(ctx context.Context, url string) (io.ReadCloser, error)
}

// releaseEndpoint is dune's own release-manifest URL, analogous to every
// self-updating CLI's hardcoded "check my own releases" endpoint.
const releaseEndpoint = "https://dune.land/api/releases/latest"

type httpReleaseSource struct{ client *http.Client }

func (s httpReleaseSource) LatestManifest(ctx context.Context) (releaseManifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releaseEndpoint, nil)
	if err != nil {
		return releaseManifest{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return releaseManifest{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return releaseManifest{}, fmt.Errorf("release endpoint returned %s", resp.Status)
	}
	var m releaseManifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return releaseManifest{}, err
	}
	return m, nil
}

func (s httpReleaseSource) DownloadAsset(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("downloading asset: server returned %s", resp.Status)
	}
	return resp.Body, nil
}

func newUpgradeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade",
		Short: "Download and install the latest dune release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpgrade(httpReleaseSource{client: &http.Client{Timeout: 2 * time.Minute}})
		},
	}
}

// runUpgrade fetches the release manifest, downloads this platform's
// asset into DUNE_DIR/bin (§6's persisted layout), and atomically swaps it
// in for the running executable via os.Rename — staged rather than
// in-place-overwritten so a failed download never corrupts the binary
// currently running it (§5's atomic-write discipline, applied here to
// "replace myself" instead of a cache entry).
func runUpgrade(src releaseSource) error {
	duneDir, err := resolveDuneDir()
	if err != nil {
		return err
	}
	stageDir := upgradeStageDir(duneDir)
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		return fmt.Errorf("creating upgrade stage dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	manifest, err := src.LatestManifest(ctx)
	if err != nil {
		return fmt.Errorf("fetching release manifest: %w", err)
	}
	if manifest.Version == version {
		fmt.Printf("dune %s is already up to date\n", version)
		return nil
	}

	platformKey := runtime.GOOS + "_" + runtime.GOARCH
	assetURL, ok := manifest.Assets[platformKey]
	if !ok {
		return fmt.Errorf("no release asset for %s", platformKey)
	}

	body, err := src.DownloadAsset(ctx, assetURL)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", platformKey, err)
	}
	defer body.Close()

	staged, err := os.CreateTemp(stageDir, "dune-*.tmp")
	if err != nil {
		return fmt.Errorf("staging download: %w", err)
	}
	stagedPath := staged.Name()
	if _, err := io.Copy(staged, body); err != nil {
		staged.Close()
		os.Remove(stagedPath)
		return fmt.Errorf("writing staged download: %w", err)
	}
	staged.Close()
	if err := os.Chmod(stagedPath, 0o755); err != nil {
		os.Remove(stagedPath)
		return fmt.Errorf("marking staged download executable: %w", err)
	}

	finalStaged := filepath.Join(stageDir, "dune-"+manifest.Version)
	if err := os.Rename(stagedPath, finalStaged); err != nil {
		os.Remove(stagedPath)
		return fmt.Errorf("finalizing staged download: %w", err)
	}

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating running executable: %w", err)
	}
	if err := os.Rename(finalStaged, self); err != nil {
		return fmt.Errorf("installing %s over the running executable (staged copy left at %s): %w", manifest.Version, finalStaged, err)
	}

	fmt.Printf("upgraded dune %s -> %s\n", version, manifest.Version)
	return nil
}
