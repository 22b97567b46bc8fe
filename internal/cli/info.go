package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/cruciblehq/paxbuild/internal/archive"
	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/cruciblehq/paxbuild/internal/recipe"
	"github.com/opencontainers/go-digest"
)

// Number of files listed by the info command.
const infoFiles = 20

// Represents the 'paxbuild info' command.
type InfoCmd struct {
	Package string `arg:"" type:"existingfile" help:"Package file."`
}

// Executes the info command.
//
// Metadata is printed even when the payload fails its integrity check; the
// integrity error is returned afterwards.
func (c *InfoCmd) Run(kctx *kong.Context) error {
	pkg, err := archive.Open(c.Package)
	if err != nil {
		return err
	}
	defer pkg.Close()

	fileDigest, err := digestFile(c.Package)
	if err != nil {
		return err
	}
	bodyDigest, err := pkg.BodyDigest()
	if err != nil {
		return err
	}
	integrity := pkg.Verify()

	m := pkg.Metadata
	tw := tabwriter.NewWriter(kctx.Stdout, 0, 4, 2, ' ', 0)
	row := func(k string, v any) { fmt.Fprintf(tw, "%s:\t%v\n", k, v) }

	row("Package", strings.TrimSuffix(m.CanonicalFilename(), recipe.Extension))
	row("Name", m.Name)
	row("Version", versionLabel(m.Version))
	row("Architecture", m.Architecture)
	row("Platform", m.Platform)
	if m.Description != "" {
		row("Description", m.Description)
	}
	row("Size", fmt.Sprintf("%d bytes", pkg.Size()))
	row("File digest", fileDigest)
	row("Body digest", bodyDigest)
	row("Content digest", m.ContentDigest)
	row("Signed", yesNo(pkg.Signed()))
	row("Filename", filenameStatus(c.Package, m))
	listRow(row, "Dependencies", m.Dependencies)
	listRow(row, "Runtime dependencies", m.RuntimeDependencies)
	listRow(row, "Provides", m.Provides)
	listRow(row, "Conflicts", m.Conflicts)
	if integrity != nil {
		row("Integrity", "FAILED: "+integrity.Error())
	} else {
		row("Integrity", "ok")
	}
	if err := tw.Flush(); err != nil {
		return fault.Wrap(archive.ErrIO, err)
	}

	printFiles(kctx.Stdout, m.Files)
	return integrity
}

// Prints the first [infoFiles] paths of files.
func printFiles(w io.Writer, files []string) {
	fmt.Fprintf(w, "Files (%d):\n", len(files))
	for i, f := range files {
		if i == infoFiles {
			fmt.Fprintf(w, "  ... and %d more\n", len(files)-infoFiles)
			break
		}
		fmt.Fprintf(w, "  %s\n", f)
	}
}

// Prints a comma-separated list row, skipping empty lists.
func listRow(row func(string, any), key string, values []string) {
	if len(values) > 0 {
		row(key, strings.Join(values, ", "))
	}
}

// Describes whether the file name matches the metadata identity.
//
// The canonical name is rebuilt from the metadata, since a name alone cannot
// always be split into its components.
func filenameStatus(path string, m *archive.Metadata) string {
	base := filepath.Base(path)
	if base == m.CanonicalFilename() {
		return "canonical"
	}
	if _, _, _, ok := recipe.ParseFilename(base); ok {
		return fmt.Sprintf("%s does not match metadata (want %s)", base, m.CanonicalFilename())
	}
	return "not canonical"
}
// Returns the canonical digest of the file at path.
func digestFile(path string) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fault.Wrap(archive.ErrIO, err)
	}
	defer f.Close()

	d, err := digest.Canonical.FromReader(f)
	if err != nil {
		return "", fault.Wrap(archive.ErrIO, err)
	}
	return d, nil
}

// Returns the version, marked when it is not a semantic version.
func versionLabel(v string) string {
	if _, ok := recipe.SemanticVersion(v); !ok {
		return v + " (not semantic)"
	}
	return v
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
