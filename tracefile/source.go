package tracefile

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Fetch resolves a trace location to a local file path.
//   - Input without "://" is a local path (relative or absolute).
//   - file:// URIs use their path directly.
//   - http:// and https:// URLs are downloaded to a temporary file.
//
// The returned cleanup removes the temporary file, if one was created; it is
// always safe to call.
func Fetch(ctx context.Context, uriStr string) (filePath string, cleanup func(), err error) {
	cleanup = func() {}

	if !strings.Contains(uriStr, "://") {
		absPath, err := filepath.Abs(uriStr)
		if err != nil {
			return "", nil, fmt.Errorf("failed to get absolute path for '%s': %w", uriStr, err)
		}
		logrus.WithField("path", absPath).Debug("Using local trace file")
		return absPath, cleanup, nil
	}

	parsedURI, err := url.Parse(uriStr)
	if err != nil {
		return "", nil, fmt.Errorf("invalid trace URI '%s': %w", uriStr, err)
	}

	switch parsedURI.Scheme {
	case "file":
		filePath = parsedURI.Path
		if filePath == "" {
			return "", nil, fmt.Errorf("invalid file path derived from URI '%s'", uriStr)
		}
		logrus.WithField("path", filePath).Debug("Using local trace file")
		return filePath, cleanup, nil

	case "http", "https":
		return download(ctx, uriStr)

	default:
		return "", nil, fmt.Errorf("unsupported URI scheme '%s', only 'file://', 'http://', 'https://', or a plain local path are supported", parsedURI.Scheme)
	}
}

func download(ctx context.Context, uriStr string) (string, func(), error) {
	logrus.WithField("url", uriStr).Info("Downloading trace")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uriStr, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to build request for '%s': %w", uriStr, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("failed to download trace from '%s': %w", uriStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("failed to download trace from '%s': received status code %d", uriStr, resp.StatusCode)
	}

	tempFile, err := os.CreateTemp("", "trace-*.log")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temporary file for download: %w", err)
	}
	filePath := tempFile.Name()

	cleanup := func() {
		logrus.WithField("path", filePath).Debug("Cleaning up temporary file")
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			logrus.WithError(err).WithField("path", filePath).Warn("Failed to remove temporary file")
		}
	}

	_, err = io.Copy(tempFile, resp.Body)
	closeErr := tempFile.Close()
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to write downloaded content to temporary file '%s': %w", filePath, err)
	}
	if closeErr != nil {
		logrus.WithError(closeErr).WithField("path", filePath).Warn("Failed to close temporary file")
	}

	logrus.WithField("path", filePath).Debug("Downloaded trace")
	return filePath, cleanup, nil
}

// Load fetches the trace at uriStr and parses it.
func Load(ctx context.Context, uriStr string, maxLines int) ([]Record, error) {
	path, cleanup, err := Fetch(ctx, uriStr)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return ReadFile(path, maxLines)
}
