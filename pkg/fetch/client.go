package fetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/arthur-debert/tapkit/internal/version"
	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/logging"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/rs/zerolog"
)

// DefaultArtifactName is used when a URL has no usable basename
const DefaultArtifactName = "artifact"

// Downloader retrieves a URL into a directory
type Downloader interface {
	Download(ctx context.Context, rawURL, destDir string) (string, error)
}

// Client downloads over HTTP(S) and copies file:// URLs and local paths
type Client struct {
	http    *http.Client
	timeout time.Duration
	logger  zerolog.Logger
}

// NewClient creates a client. A zero timeout means only ctx bounds a
// download.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		http:    cleanhttp.DefaultPooledClient(),
		timeout: timeout,
		logger:  logging.GetLogger("fetch"),
	}
}

// ArtifactName derives the local file name from a URL or path
func ArtifactName(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		p = u.Path
	}
	base := path.Base(filepath.ToSlash(p))
	if base == "." || base == "/" || base == "" || base == ".." {
		return DefaultArtifactName
	}
	return base
}

// Download fetches rawURL into destDir and returns the local path.
// Errors are DOWNLOAD_ERROR with a kind detail.
func (c *Client) Download(ctx context.Context, rawURL, destDir string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	dest := filepath.Join(destDir, ArtifactName(rawURL))
	start := time.Now()

	var err error
	u, parseErr := url.Parse(rawURL)
	switch {
	case parseErr == nil && (u.Scheme == "http" || u.Scheme == "https"):
		err = c.downloadHTTP(ctx, rawURL, dest)
	case parseErr == nil && u.Scheme == "file":
		err = copyLocal(ctx, u.Path, dest)
	case parseErr == nil && len(u.Scheme) > 1:
		err = errors.NewDownload(errors.DownloadNotFound, nil, "unsupported URL scheme %q", u.Scheme)
	default:
		err = copyLocal(ctx, rawURL, dest)
	}
	if err != nil {
		_ = os.Remove(dest)
		return "", errors.Wrapf(err, errors.ErrDownload, "failed to download %s", rawURL).
			WithDetail(errors.DetailKind, downloadKind(err))
	}

	c.logger.Debug().
		Str("url", rawURL).
		Str("dest", dest).
		Dur("duration", time.Since(start)).
		Msg("Downloaded artifact")
	return dest, nil
}

func (c *Client) downloadHTTP(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errors.NewDownload(errors.DownloadNetwork, err, "create request")
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return classify(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return errors.NewDownload(errors.DownloadNotFound, nil, "unexpected status %s", resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return errors.NewDownload(errors.DownloadNetwork, nil, "unexpected status %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return errors.NewDownload(errors.DownloadNetwork, err, "create %s", dest)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return classify(ctx, err)
	}
	if err := out.Close(); err != nil {
		return errors.NewDownload(errors.DownloadNetwork, err, "close %s", dest)
	}
	return nil
}

func copyLocal(ctx context.Context, src, dest string) error {
	if err := ctx.Err(); err != nil {
		return classify(ctx, err)
	}
	in, err := os.Open(src)
	if os.IsNotExist(err) {
		return errors.NewDownload(errors.DownloadNotFound, err, "%s does not exist", src)
	}
	if err != nil {
		return errors.NewDownload(errors.DownloadNetwork, err, "open %s", src)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return errors.NewDownload(errors.DownloadNetwork, err, "stat %s", src)
	}
	if info.IsDir() {
		return errors.NewDownload(errors.DownloadNotFound, nil, "%s is a directory", src)
	}

	out, err := os.Create(dest)
	if err != nil {
		return errors.NewDownload(errors.DownloadNetwork, err, "create %s", dest)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return errors.NewDownload(errors.DownloadNetwork, err, "copy %s", src)
	}
	return out.Close()
}

// classify turns a transport error into a kinded download error
func classify(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return errors.NewDownload(errors.DownloadTimeout, ctx.Err(), "timed out")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewDownload(errors.DownloadTimeout, err, "timed out")
	}
	if ctx.Err() != nil {
		return errors.NewDownload(errors.DownloadNetwork, ctx.Err(), "cancelled")
	}
	return errors.NewDownload(errors.DownloadNetwork, err, "transfer failed")
}

func downloadKind(err error) string {
	if kind := errors.GetDetailString(err, errors.DetailKind); kind != "" {
		return kind
	}
	return string(errors.DownloadNetwork)
}

// DownloadKindOf returns the kind of a DOWNLOAD_ERROR, or "" for other errors
func DownloadKindOf(err error) errors.DownloadKind {
	if !errors.HasErrorCode(err, errors.ErrDownload) {
		return ""
	}
	return errors.DownloadKind(errors.GetDetailString(err, errors.DetailKind))
}
