package ics

import (
	"strings"
	"unicode/utf8"
)

// maxLineOctets is the RFC 5545 content line limit, excluding CRLF.
const maxLineOctets = 75

// foldLine splits line into CRLF+space continuation lines of at most 75
// octets each. Multi-byte runes are never split, and the original bytes are
// copied as they are, including invalid UTF-8.
func foldLine(line string) string {
	if len(line) <= maxLineOctets {
		return line
	}

	var b strings.Builder
	limit := maxLineOctets
	n := 0
	for i := 0; i < len(line); {
		_, size := utf8.DecodeRuneInString(line[i:])
		if n+size > limit {
			b.WriteString(CRLF + " ")
			// Continuation lines lose one octet to the leading space.
			limit = maxLineOctets - 1
			n = 0
		}
		b.WriteString(line[i : i+size])
		n += size
		i += size
	}
	return b.String()
}

