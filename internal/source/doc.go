// Fetches, verifies and unpacks upstream sources.
//
// A [Resolver] turns a recipe's source locator into a local directory. Remote
// locators (http, https, s3) and local archive files are streamed into a
// scoped temporary directory while being digested; the digest is compared to
// the recipe's declared hash before anything is unpacked, and a mismatch is
// always fatal. Sources without a declared hash are accepted and their digest
// is handed back so the recipe can be pinned.
//
// Archive formats are detected by content, not by file name: tar, and tar
// wrapped in gzip, bzip2, xz or zstd, plus zip. Extraction goes through an
// [os.Root] and rejects absolute entry names and ".." components before
// anything is written for them. When an archive holds a single top-level
// directory, as release tarballs usually do, that directory becomes the
// source directory.
//
// Local directories are used in place and cannot carry a hash.
package source
