// Package canonical builds the exact, field-ordered byte string the creator
// signs and every verifier rebuilds, and wraps it in an RS256 JWS.
//
// The field set and order are fixed (spec §4.4):
//
//	packageId | totalCiphertextSize | "AES-256-GCM" | files[] | structuredIV? | subjectIV? | bodyIV?
//
// where files[] lists, in insertion order, fileId,hashHex,ciphertextSize,
// contentIV,filenameIV tuples. Optional IVs are omitted when the
// corresponding field is absent. Separator bytes never appear inside any
// base64url value, so the string is unambiguous to parse back out even
// though it is never parsed in practice — only rebuilt and compared.
package canonical

import (
	"strconv"
	"strings"
)

// Separators used between canonical fields. Chosen from outside the
// base64url alphabet (which is exactly [A-Za-z0-9_-]) so none can appear
// inside an encoded value and be mistaken for a field boundary.
const (
	fieldSep = "|"
	fileSep  = ";"
	tupleSep = ","
)

// cipherSuiteLabel is the fixed algorithm-suite label embedded in every
// canonical string.
const cipherSuiteLabel = "AES-256-GCM"

// FileEntry is the per-file tuple contributed to the canonical string.
type FileEntry struct {
	FileID        string
	ContentHash   string
	CiphertextLen int
	ContentIV     string
	FilenameIV    string
}

// Input carries every field the canonical string is built from. Both the
// builder (to sign) and the decryptor (to verify) construct one of these
// from their own view of the capsa and must agree byte-for-byte.
type Input struct {
	PackageID       string
	TotalCiphertext int
	Files           []FileEntry
	StructuredIV    string // empty means absent
	SubjectIV       string // empty means absent
	BodyIV          string // empty means absent
}

// Build renders the canonical string for in.
func Build(in Input) string {
	var b strings.Builder

	b.WriteString(in.PackageID)
	b.WriteString(fieldSep)
	b.WriteString(strconv.Itoa(in.TotalCiphertext))
	b.WriteString(fieldSep)
	b.WriteString(cipherSuiteLabel)
	b.WriteString(fieldSep)

	for i, f := range in.Files {
		if i > 0 {
			b.WriteString(fileSep)
		}
		b.WriteString(f.FileID)
		b.WriteString(tupleSep)
		b.WriteString(f.ContentHash)
		b.WriteString(tupleSep)
		b.WriteString(strconv.Itoa(f.CiphertextLen))
		b.WriteString(tupleSep)
		b.WriteString(f.ContentIV)
		b.WriteString(tupleSep)
		b.WriteString(f.FilenameIV)
	}

	if in.StructuredIV != "" {
		b.WriteString(fieldSep)
		b.WriteString(in.StructuredIV)
	}
	if in.SubjectIV != "" {
		b.WriteString(fieldSep)
		b.WriteString(in.SubjectIV)
	}
	if in.BodyIV != "" {
		b.WriteString(fieldSep)
		b.WriteString(in.BodyIV)
	}

	return b.String()
}
