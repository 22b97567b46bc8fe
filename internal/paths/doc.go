// Provides platform-specific filesystem paths for paxbuild.
//
// Paths follow the XDG Base Directory Specification on Linux and the
// platform conventions elsewhere, via github.com/adrg/xdg. Built packages
// land under the cache directory by default, and working trees of failed
// builds that were asked to be kept go under the state directory.
package paths
