package monitor

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/nfowatch/nfowatch/internal/sidecar"
)

// assetClient bounds only image downloads. Provider calls deliberately carry
// no timeout: a hung lookup hangs that one file's task and nothing else.
var assetClient = &http.Client{Timeout: time.Second * 30}

// downloadAsset streams the image at the URL to the destination path as raw
// bytes. Callers treat a failure here as non-fatal: a missing poster never
// fails the run that produced the sidecar.
func downloadAsset(url string, destPath string) error {
	resp, err := assetClient.Get(url)
	if err != nil {
		return fmt.Errorf("failed to fetch '%s': %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch '%s': HTTP %d", url, resp.StatusCode)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create '%s': %w", destPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return fmt.Errorf("failed to write '%s': %w", destPath, err)
	}

	return nil
}

// downloadAssets fetches every asset for the media file, logging failures
// without propagating them.
func downloadAssets(mediaPath string, assets []sidecar.Asset) {
	for _, asset := range assets {
		destPath := sidecar.AssetPathFor(mediaPath, asset.Suffix)
		if err := downloadAsset(asset.URL, destPath); err != nil {
			log.Warnf("Asset download for '%s' failed (non-fatal): %s\n", mediaPath, err.Error())
			continue
		}

		log.Debugf("Asset saved to '%s'\n", destPath)
	}
}
