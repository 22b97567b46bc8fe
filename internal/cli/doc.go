// Parses flags and runs the paxbuild commands.
//
// The root command accepts the following flags:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Enable verbose output, including build script output.
//	-d, --debug     Enable debug output.
//
// Flags override build-time defaults set via linker flags and PAXBUILD_*
// environment settings. After parsing, the global logger is reconfigured to
// reflect the final level before the selected command runs.
//
// Errors returned by [Execute] map to process exit codes through [ExitCode]:
// 2 for malformed recipes or package metadata, 3 for source fetch and hash
// failures, 4 for signature and integrity failures, 5 for build script
// failures, 6 for I/O errors and 1 for anything else.
package cli
