package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgrelay/internal/utils"
)

// Ensure resolves a binary from PATH, then from the directory holding the
// running executable.
func Ensure(binary string) (string, error) {
	path, err := exec.LookPath(binary)
	if err == nil {
		return path, nil
	}
	execPath, err := os.Executable()
	if err == nil {
		local := filepath.Join(filepath.Dir(execPath), binary)
		if runtime.GOOS == "windows" {
			local += ".exe"
		}
		if _, err := os.Stat(local); err == nil {
			return local, nil
		}
	}
	return "", fmt.Errorf("%s not found in PATH, please install manually", binary)
}

// EnsureAll resolves every configured tool and rewrites the map to absolute
// paths. yt-dlp is fetched into toolDir when it cannot be found.
func EnsureAll(ctx context.Context, binaries map[string]string, toolDir string) error {
	for logical, bin := range binaries {
		path, err := Ensure(bin)
		if err != nil && logical == "yt-dlp" {
			log.Warn().Str("op", "tools/ensure").Msg("yt-dlp not found, downloading latest release")
			path, err = downloadYtdlp(ctx, toolDir)
		}
		if err != nil {
			return err
		}
		binaries[logical] = path
		log.Debug().Str("op", "tools/ensure").Msgf("using %s at %s", logical, path)
	}
	return nil
}

func ytdlpAsset() (string, error) {
	goos := runtime.GOOS
	goarch := runtime.GOARCH
	switch {
	case goos == "windows" && goarch == "amd64":
		return "yt-dlp.exe", nil
	case goos == "windows" && goarch == "arm64":
		return "yt-dlp_arm64.exe", nil
	case goos == "linux" && goarch == "amd64":
		return "yt-dlp_linux", nil
	case goos == "linux" && goarch == "arm64":
		return "yt-dlp_linux_aarch64", nil
	case goos == "darwin":
		return "yt-dlp_macos", nil
	default:
		return "", fmt.Errorf("unsupported OS/arch: %s/%s", goos, goarch)
	}
}

func downloadYtdlp(ctx context.Context, toolDir string) (string, error) {
	asset, err := ytdlpAsset()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(toolDir, 0755); err != nil {
		return "", fmt.Errorf("error creating tool directory: %v", err)
	}
	target := filepath.Join(toolDir, "yt-dlp")
	if runtime.GOOS == "windows" {
		target += ".exe"
	}
	url := fmt.Sprintf("https://github.com/yt-dlp/yt-dlp/releases/latest/download/%s", asset)
	if err := downloadFile(ctx, utils.NewRelayHTTPClient(utils.HTTPClientConfig{LargeBuffers: true}), url, target); err != nil {
		return "", err
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(target, 0755); err != nil {
			return "", fmt.Errorf("error setting permissions: %v", err)
		}
	}
	return target, nil
}

func downloadFile(ctx context.Context, client utils.HTTPDoer, url, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, resp.Body)
	return err
}
