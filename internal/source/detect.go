package source

import (
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"
)

// Container format of a fetched source.
type Format string

const (
	FormatTar   Format = "tar"
	FormatGzip  Format = "tar+gzip"
	FormatBzip2 Format = "tar+bzip2"
	FormatXz    Format = "tar+xz"
	FormatZstd  Format = "tar+zstd"
	FormatZip   Format = "zip"
)

// Number of leading bytes inspected for detection. Tar needs a full 512-byte
// header block; the rest is headroom for the detector.
const sniffLen = 3072

// MIME types mapped to formats, checked against the detected type and each
// of its parents.
var formats = []struct {
	mime   string
	format Format
}{
	{"application/x-tar", FormatTar},
	{"application/gzip", FormatGzip},
	{"application/x-bzip2", FormatBzip2},
	{"application/x-xz", FormatXz},
	{"application/zstd", FormatZstd},
	{"application/zip", FormatZip},
}

// Detects the container format of the file at path from its leading bytes.
//
// Returns false when the content is not a supported archive. A compressed
// stream is reported by its compression only; whether it wraps a tar is
// checked during extraction.
func detectFile(path string) (Format, string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", false, err
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", "", false, err
	}

	format, mime, ok := detect(buf[:n])
	return format, mime, ok, nil
}

// Detects the container format of data.
//
// Also returns the detected MIME type, for error messages.
func detect(data []byte) (Format, string, bool) {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		for _, f := range formats {
			if m.Is(f.mime) {
				return f.format, mt.String(), true
			}
		}
	}
	return "", mt.String(), false
}
