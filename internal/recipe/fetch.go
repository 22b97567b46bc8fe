package recipe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cruciblehq/paxbuild/internal/fault"
)

// Largest recipe document accepted from a URL.
const maxRecipeSize = 1 << 20

// Loads a recipe from a local path, a file:// URL or an http(s) URL.
func Open(ctx context.Context, client *http.Client, locator string) (*Recipe, error) {
	u, err := url.Parse(locator)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		return Load(locator)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return Fetch(ctx, client, u.String())
	case "file":
		return Load(u.Path)
	}
	return nil, fault.Wrapf(ErrFetchFailed, "unsupported recipe scheme %q", u.Scheme)
}

// Downloads and parses the recipe at an http(s) URL.
//
// Anything but a 200 response fails with [ErrFetchFailed]. A nil client
// means [http.DefaultClient].
func Fetch(ctx context.Context, client *http.Client, rawURL string) (*Recipe, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fault.Wrap(ErrFetchFailed, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fault.Wrap(ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fault.Wrapf(ErrFetchFailed, "%s: %s", rawURL, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRecipeSize+1))
	if err != nil {
		return nil, fault.Wrap(ErrFetchFailed, err)
	}
	if len(data) > maxRecipeSize {
		return nil, fault.Wrapf(ErrFetchFailed, "%s: recipe larger than %d bytes", rawURL, maxRecipeSize)
	}

	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rawURL, err)
	}
	return r, nil
}
