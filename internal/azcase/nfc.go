package azcase

import "golang.org/x/text/unicode/norm"

// ComposeNFC returns s in Unicode normalization form C. Already composed
// input, the common case, is returned without allocating.
func ComposeNFC(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}
