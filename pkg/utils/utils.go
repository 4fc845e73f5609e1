// Package utils provides download and caching helpers shared by the dataset loaders.
package utils

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("file not found on server")

type progressWriter struct {
	io.Writer
	total uint64
	last  uint64
	label string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.total += uint64(n)
	if pw.total-pw.last > 5*1024*1024 { // Log every 5MB
		zap.L().Info("download progress", zap.String("file", pw.label), zap.Uint64("mb", pw.total/1024/1024))
		pw.last = pw.total
	}
	return n, err
}

func get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "build request for %s", url)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "get %s", url)
	}
	if resp.StatusCode != http.StatusOK {
		closeBody(resp)
		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, eris.Errorf("bad status from %s: %s", url, resp.Status)
	}
	return resp, nil
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		zap.L().Warn("error closing response body", zap.Error(err))
	}
}

// DownloadFile downloads a file from a URL to a local path safely.
func DownloadFile(ctx context.Context, url, path string) error {
	resp, err := get(ctx, url)
	if err != nil {
		return err
	}
	defer closeBody(resp)

	// Create a temp file in the same directory to ensure atomic move
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return eris.Wrap(err, "create temp file")
	}
	tmpName := tmpFile.Name()
	defer func() {
		if err := os.Remove(tmpName); err != nil && !os.IsNotExist(err) {
			zap.L().Warn("error removing temp file", zap.String("path", tmpName), zap.Error(err))
		}
	}() // Clean up if we fail

	pw := &progressWriter{Writer: tmpFile, label: filepath.Base(path)}
	if _, err := io.Copy(pw, resp.Body); err != nil {
		_ = tmpFile.Close()
		return eris.Wrapf(err, "download %s", url)
	}
	if err := tmpFile.Close(); err != nil {
		return eris.Wrap(err, "close temp file")
	}

	// Atomic rename to final path
	return os.Rename(tmpName, path)
}

// GetCacheFileName returns the expected local filename for a given URL and logPrefix.
func GetCacheFileName(url, logPrefix string) string {
	url, _, _ = strings.Cut(url, "?")
	urlParts := strings.Split(url, "/")
	fileName := urlParts[len(urlParts)-1]

	sanitizedPrefix := strings.Trim(logPrefix, "[]")
	sanitizedPrefix = strings.ReplaceAll(sanitizedPrefix, " ", "_")
	if sanitizedPrefix != "" {
		fileName = sanitizedPrefix + "_" + fileName
	}
	return fileName
}

// GetCachedReader returns a reader for the given URL. When cacheDir is non-empty the body is
// downloaded into it once and served from disk afterwards.
func GetCachedReader(ctx context.Context, url, cacheDir, logPrefix string) (io.ReadCloser, error) {
	log := zap.L().With(zap.String("source", logPrefix), zap.String("url", url))
	if cacheDir != "" {
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return nil, eris.Wrap(err, "failed to create cache dir")
		}
		localPath := filepath.Join(cacheDir, GetCacheFileName(url, logPrefix))

		if _, err := os.Stat(localPath); os.IsNotExist(err) {
			log.Info("downloading")
			if err := DownloadFile(ctx, url, localPath); err != nil {
				return nil, err // Return the error directly so caller can see ErrNotFound
			}
		} else {
			log.Info("using cached file", zap.String("path", localPath))
		}
		f, err := os.Open(localPath)
		if err != nil {
			return nil, eris.Wrap(err, "failed to open cache")
		}
		return f, nil
	}

	log.Info("streaming")
	resp, err := get(ctx, url)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// IsURL reports whether src should be fetched over HTTP rather than opened from disk.
func IsURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Open returns a reader for src, which is either an http(s) URL or a local file path.
func Open(ctx context.Context, src, cacheDir, logPrefix string) (io.ReadCloser, error) {
	if IsURL(src) {
		return GetCachedReader(ctx, src, cacheDir, logPrefix)
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", src)
	}
	return f, nil
}
