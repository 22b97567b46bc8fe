// Assembles, reads and extracts .pax package archives.
//
// A package is a single zstd stream wrapping a tar archive. The first tar
// entry is always the metadata document ".PAXINFO" (YAML); the remaining
// entries are the staged install tree, rooted at "/" on the target system.
//
// Assembly is deterministic. Entries are written in lexical walk order, every
// header carries mtime 0 and uid/gid 0 with no owner names, and the zstd
// encoder runs single-threaded at a fixed level. Assembling the same tree and
// metadata twice yields byte-identical bodies, which keeps signatures
// reproducible.
//
// A signed package carries a trailer after the compressed body:
//
//	[CBOR signature block][uint32 big-endian block length][magic "PAXSIG\x00\x01"]
//
// [SplitTrailer] strips it losslessly, so the exact bytes that were signed can
// always be recovered from a signed package. Unsigned packages have no
// trailer and are valid.
//
// The reader decodes the metadata eagerly and the payload lazily. Metadata
// failures ([ErrCorruptMetadata]) are reported separately from payload
// failures ([ErrCorruptPayload], [ErrTruncatedArchive]) so callers can still
// show package information when only the payload is damaged.
package archive
