package cli

import (
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/cruciblehq/paxbuild/internal/archive"
	"github.com/cruciblehq/paxbuild/internal/signing"
)

// Represents the 'paxbuild extract' command.
type ExtractCmd struct {
	Package string `arg:"" type:"existingfile" help:"Package file."`
	Output  string `short:"o" default:"." placeholder:"DIR" help:"Destination directory."`
	Key     string `type:"existingfile" placeholder:"FILE" help:"Require a valid embedded signature from this public key before extracting."`
}

// Executes the extract command.
func (c *ExtractCmd) Run(kctx *kong.Context) error {
	pkg, err := archive.Open(c.Package)
	if err != nil {
		return err
	}
	defer pkg.Close()

	if c.Key != "" {
		pub, err := signing.LoadPublicKey(c.Key)
		if err != nil {
			return err
		}
		if err := pkg.VerifySignature(nil, pub); err != nil {
			return err
		}
	}

	if err := pkg.Extract(c.Output); err != nil {
		return err
	}

	fmt.Fprintf(kctx.Stdout, "extracted %d files from %s to %s\n", len(pkg.Metadata.Files), c.Package, c.Output)
	return nil
}
