package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/alecthomas/kong"
	"github.com/cruciblehq/paxbuild/internal/archive"
	"github.com/cruciblehq/paxbuild/internal/fault"
	"github.com/cruciblehq/paxbuild/internal/signing"
)

// Represents the 'paxbuild verify' command.
type VerifyCmd struct {
	Package   string `arg:"" type:"existingfile" help:"Package file."`
	Key       string `type:"existingfile" placeholder:"FILE" help:"Hex-encoded Ed25519 public key. Without it only integrity is checked."`
	Signature string `type:"existingfile" placeholder:"FILE" help:"Detached signature. Defaults to the embedded one, then to PACKAGE.sig."`
}

// Executes the verify command.
//
// The payload is always checked against the content digest in the metadata.
// With a key, the signature must also verify: an explicit detached signature
// wins, then the embedded trailer, then a sibling .sig file.
func (c *VerifyCmd) Run(kctx *kong.Context) error {
	pkg, err := archive.Open(c.Package)
	if err != nil {
		return err
	}
	defer pkg.Close()

	if err := pkg.Verify(); err != nil {
		return err
	}

	if c.Key == "" {
		fmt.Fprintf(kctx.Stdout, "%s: integrity ok, signature not checked\n", c.Package)
		return nil
	}

	pub, err := signing.LoadPublicKey(c.Key)
	if err != nil {
		return err
	}

	sig, origin, err := c.signature(pkg)
	if err != nil {
		return err
	}

	if err := pkg.VerifySignature(sig, pub); err != nil {
		return err
	}

	fmt.Fprintf(kctx.Stdout, "%s: integrity ok, %s signature valid\n", c.Package, origin)
	return nil
}

// Returns the signature to check and where it came from.
func (c *VerifyCmd) signature(pkg *archive.Package) (*signing.Signature, string, error) {
	if c.Signature != "" {
		sig, err := archive.ReadSignatureFile(c.Signature)
		return sig, "detached", err
	}
	if pkg.Signed() {
		return pkg.Signature, "embedded", nil
	}

	path := archive.SignaturePath(c.Package)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", fault.Wrapf(ErrUnsigned, "%s has no embedded signature and %s does not exist", c.Package, path)
		}
		return nil, "", fault.Wrap(archive.ErrIO, err)
	}
	sig, err := archive.ReadSignatureFile(path)
	return sig, "detached", err
}
