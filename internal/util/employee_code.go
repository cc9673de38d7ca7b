package util

import (
	"strconv"
	"strings"
	"unicode"
)

// EmployeeCode builds a code of the form DEP-DES-G-NNNN from the first three
// letters of department and designation, the gender initial and a random
// serial in 1000-9999, e.g. "ENG-SOF-M-4270". Short or empty parts are padded with X.
func EmployeeCode(department, designation, gender string) string {
	return strings.Join([]string{
		codePart(department, 3),
		codePart(designation, 3),
		codePart(gender, 1),
		strconv.FormatInt(RandomInt(1000, 9999), 10),
	}, "-")
}

func codePart(s string, n int) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if b.Len() == n {
			break
		}
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	for b.Len() < n {
		b.WriteByte('X')
	}
	return b.String()
}
