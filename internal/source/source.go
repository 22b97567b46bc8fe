package source

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/cruciblehq/paxbuild/internal/paths"
	"github.com/cruciblehq/paxbuild/internal/recipe"
	"github.com/opencontainers/go-digest"
)

// Name of the downloaded archive inside the scoped temporary directory.
const downloadName = "download"

// Name of the extraction directory inside the scoped temporary directory.
const extractName = "src"

// A resolved, verified source tree.
//
// Dir must be treated as read-only; the build executor copies it into each
// job's working tree.
type Source struct {
	Dir      string        // Root of the source tree.
	Digest   digest.Digest // Digest of the fetched bytes, empty for directories.
	Verified bool          // True if Digest matched the declared hash.
	Format   Format        // Detected archive format, empty for directories.
	tmp      string        // Scoped temporary directory, removed by Close.
}

// Removes the temporary files backing the source.
func (s *Source) Close() error {
	if s.tmp == "" {
		return nil
	}
	return os.RemoveAll(s.tmp)
}

// Options for [NewResolver].
type Options struct {
	WorkDir     string        // Parent of temporary directories, [paths.Work] if empty.
	HTTPClient  *http.Client  // Client for http(s) sources, built from HTTPTimeout if nil.
	HTTPTimeout time.Duration // Overall timeout for one HTTP download, none if zero.
	S3Region    string        // Region override for s3 sources.
	S3Endpoint  string        // Custom endpoint for s3 sources.
	S3PathStyle bool          // Path-style addressing for s3 sources.
}

// Resolves source locators into local directories.
type Resolver struct {
	workDir  string
	fetchers map[string]Fetcher
}

// Creates a new resolver with fetchers for http, https, s3 and file locators.
func NewResolver(opts Options) *Resolver {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.HTTPTimeout}
	}

	workDir := opts.WorkDir
	if workDir == "" {
		workDir = paths.Work()
	}

	web := &httpFetcher{client: client}
	return &Resolver{
		workDir: workDir,
		fetchers: map[string]Fetcher{
			"http":  web,
			"https": web,
			"s3": &s3Fetcher{
				region:    opts.S3Region,
				endpoint:  opts.S3Endpoint,
				pathStyle: opts.S3PathStyle,
			},
			"file": fileFetcher{},
		},
	}
}

// Registers the fetcher for a locator scheme, replacing any existing one.
func (r *Resolver) Register(scheme string, f Fetcher) {
	r.fetchers[strings.ToLower(scheme)] = f
}

// Fetches, verifies and unpacks the source at locator.
//
// expected is the recipe's declared hash, or [recipe.Unverified]. The fetched
// bytes are digested with the algorithm of expected (SHA-256 when unverified)
// and a mismatch fails with a [HashMismatchError] before anything is
// extracted. All temporary files are removed when resolution fails; on
// success they live until [Source.Close].
func (r *Resolver) Resolve(ctx context.Context, locator string, expected digest.Digest) (*Source, error) {
	u, local, err := parseLocator(locator)
	if err != nil {
		return nil, fault.Wrap(ErrFetchFailed, err)
	}

	if local != "" {
		info, err := os.Stat(local)
		if err != nil {
			return nil, fault.Wrap(ErrFetchFailed, err)
		}
		if info.IsDir() {
			return resolveDir(local, expected)
		}
		u = &url.URL{Scheme: "file", Path: local}
	}

	fetcher, ok := r.fetchers[u.Scheme]
	if !ok {
		return nil, fault.Wrapf(ErrFetchFailed, "unsupported locator scheme %q", u.Scheme)
	}

	if err := os.MkdirAll(r.workDir, paths.DefaultDirMode); err != nil {
		return nil, fault.Wrap(ErrFetchFailed, err)
	}
	tmp, err := os.MkdirTemp(r.workDir, "source-*")
	if err != nil {
		return nil, fault.Wrap(ErrFetchFailed, err)
	}

	src, err := r.resolveArchive(ctx, fetcher, u, expected, tmp)
	if err != nil {
		os.RemoveAll(tmp)
		return nil, err
	}
	return src, nil
}

// Fetches, verifies and unpacks an archive into tmp.
func (r *Resolver) resolveArchive(ctx context.Context, fetcher Fetcher, u *url.URL, expected digest.Digest, tmp string) (*Source, error) {
	archivePath := filepath.Join(tmp, downloadName)

	slog.Info("fetching source", "locator", u.Redacted())
	actual, err := download(ctx, fetcher, u, archivePath, algorithmFor(expected))
	if err != nil {
		return nil, err
	}

	verified := expected != recipe.Unverified
	if verified && actual != expected {
		return nil, &HashMismatchError{Expected: expected, Actual: actual}
	}
	if !verified {
		slog.Warn("source is unverified", "locator", u.Redacted(), "digest", actual)
	}

	format, mime, ok, err := detectFile(archivePath)
	if err != nil {
		return nil, fault.Wrap(ErrExtractFailed, err)
	}
	if !ok {
		return nil, fault.Wrapf(ErrUnsupportedArchive, "content is %s", mime)
	}

	dest := filepath.Join(tmp, extractName)
	if err := os.Mkdir(dest, paths.DefaultDirMode); err != nil {
		return nil, fault.Wrap(ErrExtractFailed, err)
	}
	if err := extract(archivePath, format, dest); err != nil {
		return nil, err
	}
	if err := os.Remove(archivePath); err != nil {
		return nil, fault.Wrap(ErrExtractFailed, err)
	}

	dir, err := collapse(dest)
	if err != nil {
		return nil, fault.Wrap(ErrExtractFailed, err)
	}

	slog.Debug("source unpacked", "format", format, "dir", dir, "digest", actual)

	return &Source{
		Dir:      dir,
		Digest:   actual,
		Verified: verified,
		Format:   format,
		tmp:      tmp,
	}, nil
}

// Streams the locator into path, returning the digest of the bytes written.
func download(ctx context.Context, fetcher Fetcher, u *url.URL, path string, alg digest.Algorithm) (digest.Digest, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, paths.DefaultFileMode)
	if err != nil {
		return "", fault.Wrap(ErrFetchFailed, err)
	}
	defer f.Close()

	digester := alg.Digester()
	if err := fetcher.Fetch(ctx, u, io.MultiWriter(f, digester.Hash())); err != nil {
		return "", fault.Wrap(ErrFetchFailed, err)
	}
	if err := f.Close(); err != nil {
		return "", fault.Wrap(ErrFetchFailed, err)
	}

	return digester.Digest(), nil
}

// Uses a local directory in place.
func resolveDir(dir string, expected digest.Digest) (*Source, error) {
	if expected != recipe.Unverified {
		return nil, fault.Wrapf(ErrFetchFailed, "directory source %s cannot be verified against %s", dir, expected)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fault.Wrap(ErrFetchFailed, err)
	}

	slog.Warn("using local source directory", "dir", abs)
	return &Source{Dir: abs}, nil
}

// Returns the algorithm used to digest a source declared with expected.
func algorithmFor(expected digest.Digest) digest.Algorithm {
	if expected == recipe.Unverified {
		return digest.Canonical
	}
	return expected.Algorithm()
}

// Splits a locator into a URL or a local path.
//
// Locators with a scheme of two or more letters are URLs; file URLs become
// local paths. Everything else is a local path.
func parseLocator(locator string) (*url.URL, string, error) {
	if i := strings.Index(locator, "://"); i > 1 {
		u, err := url.Parse(locator)
		if err != nil {
			return nil, "", err
		}
		u.Scheme = strings.ToLower(u.Scheme)
		if u.Scheme == "file" {
			return nil, u.Path, nil
		}
		return u, "", nil
	}
	return nil, locator, nil
}

// Returns the single top-level directory of dir, or dir itself when it holds
// anything else.
func collapse(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}
