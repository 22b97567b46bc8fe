package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Streams the bytes a locator refers to.
type Fetcher interface {
	Fetch(ctx context.Context, u *url.URL, w io.Writer) error
}

// Fetches http and https locators.
type httpFetcher struct {
	client *http.Client
}

// Downloads u with a GET request. Any status other than 200 is an error.
func (f *httpFetcher) Fetch(ctx context.Context, u *url.URL, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", u.Redacted(), resp.Status)
	}

	_, err = io.Copy(w, resp.Body)
	return err
}

// Fetches s3://bucket/key locators.
//
// The client is built from the default AWS configuration chain on first use,
// so builds that never touch S3 never read AWS configuration.
type s3Fetcher struct {
	region    string // Region override, empty for the configured default.
	endpoint  string // Custom endpoint, for S3-compatible stores.
	pathStyle bool   // Use path-style addressing.

	once   sync.Once
	client *s3.Client
	err    error
}

// Downloads the object named by u.
func (f *s3Fetcher) Fetch(ctx context.Context, u *url.URL, w io.Writer) error {
	bucket, key, err := s3Location(u)
	if err != nil {
		return err
	}

	client, err := f.getClient(ctx)
	if err != nil {
		return err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return err
	}
	defer out.Body.Close()

	_, err = io.Copy(w, out.Body)
	return err
}

// Returns the shared S3 client, creating it on first use.
func (f *s3Fetcher) getClient(ctx context.Context) (*s3.Client, error) {
	f.once.Do(func() {
		var opts []func(*config.LoadOptions) error
		if f.region != "" {
			opts = append(opts, config.WithRegion(f.region))
		}

		cfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			f.err = err
			return
		}

		f.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.UsePathStyle = f.pathStyle
			if f.endpoint != "" {
				o.BaseEndpoint = aws.String(f.endpoint)
			}
		})
	})
	return f.client, f.err
}

// Splits an s3 URL into bucket and key.
func s3Location(u *url.URL) (bucket, key string, err error) {
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 locator %q needs a bucket and a key", u.String())
	}
	return bucket, key, nil
}

// Reads local archive files.
type fileFetcher struct{}

// Copies the file at u.Path.
func (fileFetcher) Fetch(_ context.Context, u *url.URL, w io.Writer) error {
	f, err := os.Open(u.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
