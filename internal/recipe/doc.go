// Package recipe parses and validates paxbuild recipes.
//
// A recipe is a YAML document describing one package: its identity (name and
// version), where its upstream source lives, the shell script that builds it,
// and the relationships recorded in the resulting package metadata. Parsing
// produces a [Recipe] that is treated as read-only for the remainder of the
// pipeline; a single recipe drives one build per target [Architecture].
//
// Unknown top-level fields are ignored so that newer recipes remain readable
// by older tools. A recipe without a hash carries the [Unverified] sentinel;
// the source resolver computes and reports the digest after download instead
// of trusting it silently.
//
// Example recipe:
//
//	name: hello
//	version: 2.12.1
//	description: GNU hello
//	source: https://ftp.gnu.org/gnu/hello/hello-2.12.1.tar.gz
//	hash: sha256:8d99142afd92576f30b0cd7cb42a8dc6809998bc5d607d88761f512e26c7db20
//	arch: [x86_64, aarch64]
//	build: |
//	  "$PAX_SOURCE_DIR"/configure --prefix=/usr
//	  make
//	  make install DESTDIR="$PAX_BUILD_ROOT"
package recipe
