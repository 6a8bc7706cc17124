package store

import (
	"golang.org/x/text/cases"
)

// folder is a Unicode case folder shared by every cell with NoCase
// set. Using golang.org/x/text instead of strings.ToLower matches
// cell and instance names with full Unicode case-folding semantics
// rather than ASCII-only lowering (spec §4.1's Lookup/matchnocase
// semantics, grounded on original_source/base/objlist.c's
// matchnocase/matchfilenocase).
var folder = cases.Fold()

func foldCase(s string) string {
	return folder.String(s)
}
