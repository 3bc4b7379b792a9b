package source

// FileFlags records normalization facts discovered while loading a file.
type FileFlags uint8

const (
	// FileHadLeadingBOM indicates a UTF-8 BOM was present at byte 0 and
	// stripped (warning only, per spec.md §4.1).
	FileHadLeadingBOM FileFlags = 1 << iota
	// FileNormalizedCRLF indicates CRLF/CR sequences were rewritten to LF.
	FileNormalizedCRLF
	// FileVirtual marks a file that did not come from disk (stdin, tests).
	FileVirtual
)

// File is an immutable, normalized source file plus its line-start table.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	// LineStarts[i] is the byte offset of the first character of line i+2
	// (line 1 always starts at offset 0 and is not stored).
	LineStarts []uint32
	Flags      FileFlags
}
