package source

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// utf8BOM is the three-byte UTF-8 byte-order mark.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// stripLeadingBOM removes a UTF-8 BOM at byte offset 0 and reports whether
// one was found. It never inspects interior bytes.
func stripLeadingBOM(b []byte) ([]byte, bool) {
	if len(b) >= 3 && b[0] == utf8BOM[0] && b[1] == utf8BOM[1] && b[2] == utf8BOM[2] {
		return b[3:], true
	}
	return b, false
}

// hasInteriorBOM reports whether a UTF-8 BOM sequence occurs anywhere past
// the first scalar — this is rejected as E-SRC-0103 by the caller.
func hasInteriorBOM(b []byte) bool {
	for i := 0; i+3 <= len(b); i++ {
		if b[i] == utf8BOM[0] && b[i+1] == utf8BOM[1] && b[i+2] == utf8BOM[2] {
			return true
		}
	}
	return false
}

// normalizeCRLF rewrites "\r\n" and lone "\r" to "\n" and reports whether any
// rewriting occurred. Implements the boundary behaviors from spec.md §8:
// "a\r\nb" -> "a\nb" (3 scalars), "a\r" -> "a\n".
func normalizeCRLF(b []byte) ([]byte, bool) {
	changed := false
	for _, c := range b {
		if c == '\r' {
			changed = true
			break
		}
	}
	if !changed {
		return b, false
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] == '\r' {
			out = append(out, '\n')
			if i+1 < len(b) && b[i+1] == '\n' {
				i++
			}
			continue
		}
		out = append(out, b[i])
	}
	return out, true
}

// validateUTF8 reports whether b decodes as well-formed UTF-8 (used for
// E-SRC-0104, "NonUTF8Input"). This mirrors x/text/encoding/unicode's BOM
// sniffing contract without actually transcoding non-UTF-8 input — Cursive0
// source files are mandated UTF-8.
func validateUTF8(b []byte) bool {
	return utf8.Valid(b)
}

// decodeUTF8WithBOMPolicy runs the bytes through x/text's UTF-8 BOM-aware
// decoder purely to detect a UTF-16 BOM masquerading as source (an explicit
// foreign-encoding rejection separate from the UTF-8 BOM warning above).
func decodeUTF8WithBOMPolicy(b []byte) error {
	if len(b) >= 2 && ((b[0] == 0xFE && b[1] == 0xFF) || (b[0] == 0xFF && b[1] == 0xFE)) {
		return fmt.Errorf("source file is UTF-16 encoded, expected UTF-8")
	}
	d := unicode.UTF8.NewDecoder()
	_, _, err := transform.Bytes(d, b)
	return err
}

func buildLineStarts(content []byte) []uint32 {
	starts := make([]uint32, 0, len(content)/32)
	for i, c := range content {
		if c == '\n' {
			starts = append(starts, uint32(i)+1)
		}
	}
	return starts
}
