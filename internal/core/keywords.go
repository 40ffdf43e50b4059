package core

import (
	"strings"

	"golang.org/x/text/cases"
)

// DebtKeywords mark expense categories whose spending counts as debt service.
var DebtKeywords = []string{"loan", "credit", "debt", "emi"}

// ContainsAnyFold reports whether name contains one of keywords, ignoring case.
func ContainsAnyFold(name string, keywords []string) bool {
	folder := cases.Fold()
	folded := folder.String(name)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(folded, folder.String(kw)) {
			return true
		}
	}
	return false
}
