package cli

import (
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/cruciblehq/paxbuild/internal"
)

// Represents the 'paxbuild version' command.
type VersionCmd struct{}

// Executes the version command.
func (c *VersionCmd) Run(kctx *kong.Context) error {
	fmt.Fprintln(kctx.Stdout, internal.VersionString())
	return nil
}
