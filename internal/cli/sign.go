package cli

import (
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/cruciblehq/paxbuild/internal/archive"
	"github.com/cruciblehq/paxbuild/internal/signing"
)

// Represents the 'paxbuild sign' command.
type SignCmd struct {
	Package  string `arg:"" type:"existingfile" help:"Package file."`
	Key      string `required:"" type:"existingfile" placeholder:"FILE" help:"Hex-encoded Ed25519 private key."`
	Detached bool   `help:"Write a detached signature instead of embedding it."`
	Output   string `short:"o" placeholder:"PATH" help:"Output path. Defaults to the package itself, or PACKAGE.sig when detached."`
}

// Executes the sign command.
//
// Embedded signing replaces any existing signature trailer. Detached signing
// leaves the package untouched; the signature covers the unsigned body, so
// it verifies whether or not the package also carries a trailer.
func (c *SignCmd) Run(kctx *kong.Context) error {
	seed, err := signing.LoadPrivateKey(c.Key)
	if err != nil {
		return err
	}

	if !c.Detached {
		dst := c.Output
		if dst == "" {
			dst = c.Package
		}
		if _, err := archive.SignFile(c.Package, dst, archive.SignWithSeed(seed)); err != nil {
			return err
		}
		fmt.Fprintf(kctx.Stdout, "signed %s\n", dst)
		return nil
	}

	pkg, err := archive.Open(c.Package)
	if err != nil {
		return err
	}
	defer pkg.Close()

	sig, err := signing.Sign(pkg.Body(), seed)
	if err != nil {
		return err
	}

	dst := c.Output
	if dst == "" {
		dst = archive.SignaturePath(c.Package)
	}
	if dst == c.Package {
		return usageError("detached signature would overwrite the package %s", c.Package)
	}
	if err := archive.WriteSignatureFile(dst, sig); err != nil {
		return err
	}

	fmt.Fprintf(kctx.Stdout, "wrote detached signature %s\n", dst)
	return nil
}
