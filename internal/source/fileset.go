package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"fortio.org/safecast"
)

// FileSet owns a collection of loaded files and answers Locate/SpanOf
// queries against them. A FileSet is append-only: files are never removed
// or mutated once added.
type FileSet struct {
	files []*File
}

// NewFileSet creates an empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{files: make([]*File, 0)}
}

// Add normalizes content and registers it as a new file, returning its ID.
// Returns an error (E-SRC-0103-equivalent) if an interior BOM is found, or
// if the content is not valid UTF-8.
func (fs *FileSet) Add(path string, raw []byte) (FileID, []Warning, error) {
	var warnings []Warning

	content, hadBOM := stripLeadingBOM(raw)
	if hadBOM {
		warnings = append(warnings, Warning{Code: "W-SRC-0102", Msg: "leading UTF-8 BOM stripped"})
	}
	if hasInteriorBOM(content) {
		return 0, warnings, fmt.Errorf("E-SRC-0103: embedded BOM found after first scalar in %s", path)
	}
	if err := decodeUTF8WithBOMPolicy(content); err != nil {
		return 0, warnings, fmt.Errorf("E-SRC-0104: %s: %w", path, err)
	}
	if !validateUTF8(content) {
		return 0, warnings, fmt.Errorf("E-SRC-0104: %s: invalid UTF-8", path)
	}

	normalized, hadCRLF := normalizeCRLF(content)

	flags := FileFlags(0)
	if hadBOM {
		flags |= FileHadLeadingBOM
	}
	if hadCRLF {
		flags |= FileNormalizedCRLF
	}

	id, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("source: file id overflow: %w", err))
	}
	f := &File{
		ID:         FileID(id),
		Path:       path,
		Content:    normalized,
		LineStarts: buildLineStarts(normalized),
		Flags:      flags,
	}
	fs.files = append(fs.files, f)
	return f.ID, warnings, nil
}

// AddVirtual registers in-memory content (stdin, tests) without touching disk.
func (fs *FileSet) AddVirtual(name string, content []byte) (FileID, []Warning, error) {
	id, warnings, err := fs.Add(name, content)
	if err == nil {
		fs.files[id].Flags |= FileVirtual
	}
	return id, warnings, err
}

// Load reads a file from disk and registers it via Add.
func (fs *FileSet) Load(path string) (FileID, []Warning, error) {
	// #nosec G304 -- path is supplied by the project loader, not untrusted input
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, fmt.Errorf("E-SRC-0101: %s: %w", path, err)
	}
	return fs.Add(path, raw)
}

// Get returns the file for id. Panics on an out-of-range id: callers only
// ever hold ids handed back by this FileSet.
func (fs *FileSet) Get(id FileID) *File {
	return fs.files[id]
}

// ByteLen returns the content length of a file, used by callers that need
// to clamp offsets before calling SpanOf.
func (fs *FileSet) ByteLen(id FileID) uint32 {
	l, err := safecast.Conv[uint32](len(fs.files[id].Content))
	if err != nil {
		panic(fmt.Errorf("source: content length overflow: %w", err))
	}
	return l
}

// SpanOf clamps (start, end) into the file's bounds and returns a Span.
// Clamping is idempotent (spec.md §8).
func (fs *FileSet) SpanOf(id FileID, start, end uint32) Span {
	byteLen := fs.ByteLen(id)
	s, e := clampSpan(start, end, byteLen)
	return Span{File: id, Start: s, End: e}
}

// Locate converts a byte offset into a 1-based (line, col) position. It is
// total: any offset in [0, byteLen] yields line>=1, col>=1 (spec.md §8).
func (fs *FileSet) Locate(id FileID, offset uint32) LineCol {
	f := fs.files[id]
	byteLen, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("source: content length overflow: %w", err))
	}
	if offset > byteLen {
		offset = byteLen
	}
	// binary search for the line containing offset
	idx := sort.Search(len(f.LineStarts), func(i int) bool { return f.LineStarts[i] > offset })
	line := uint32(idx) + 1
	var lineStart uint32
	if idx > 0 {
		lineStart = f.LineStarts[idx-1]
	}
	col := offset - lineStart + 1
	return LineCol{Line: line, Col: col}
}

// ResolveSpan returns the start/end LineCol for a span.
func (fs *FileSet) ResolveSpan(s Span) (start, end LineCol) {
	return fs.Locate(s.File, s.Start), fs.Locate(s.File, s.End)
}

// Text returns the raw bytes covered by a span.
func (fs *FileSet) Text(s Span) []byte {
	f := fs.files[s.File]
	return f.Content[s.Start:s.End]
}

// Warning is a non-fatal normalization note surfaced alongside a load.
type Warning struct {
	Code string
	Msg  string
}

// NewFileSetFromDir is a convenience used by the project loader: it loads
// every file in paths (already filtered to the module's extension) in
// deterministic, case-folded lexicographic order, breaking ties by
// bytewise UTF-8 order, matching spec.md §4.2's module ordering rule.
func NewFileSetFromDir(paths []string) (*FileSet, []FileID, error) {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		af, bf := caseFold(a), caseFold(b)
		if af != bf {
			return af < bf
		}
		return a < b
	})
	fs := NewFileSet()
	ids := make([]FileID, 0, len(sorted))
	for _, p := range sorted {
		id, _, err := fs.Load(p)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		ids = append(ids, id)
	}
	return fs, ids, nil
}
