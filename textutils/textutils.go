// Package textutils contains small string helpers shared by the
// generator stages.
package textutils

import (
	"bytes"
	"slices"
	"strings"
)

var asciiSpace = [256]bool{'\t': true, '\n': true, '\v': true, '\f': true, '\r': true, ' ': true}

// Prepends indent nIndent times to each line beginning in s,
// except for empty lines.
func IndentString(s string, indent string, nIndent int) string {
	b := []byte(s)

	var res strings.Builder
	{
		nBOL := bytes.Count(b, []byte{'\n'}) + 1
		upperBound := len(s) + nBOL*nIndent*len(indent) // doesn't consider the fact that empty lines are ignored
		res.Grow(upperBound)
	}

	start := 0
	end := 0
	for start < len(b) {
		hitNewline := false
		end = bytes.Index(b[start:], []byte{'\n'})
		if end == -1 {
			end = len(b)
		} else {
			hitNewline = true
			end += start + 1 // adjust to offset and include "\n"
		}
		line := b[start:end]
		if slices.ContainsFunc(line, func(b byte) bool { return !asciiSpace[b] }) {
			for range nIndent {
				res.WriteString(indent)
			}
			res.Write(line)
		} else if hitNewline {
			res.Write([]byte{'\n'})
		}
		start = end
	}

	return res.String()
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// Title upper-cases every ASCII letter that follows a non-letter and
// lower-cases every other letter.
//
// Digits don't count as letters, so "R8G8B8A8_UNORM" becomes
// "R8G8B8A8_Unorm" and "TYPE_2D" becomes "Type_2D".
func Title(s string) string {
	b := []byte(s)
	prevLetter := false
	for i, c := range b {
		if !isASCIILetter(c) {
			prevLetter = false
			continue
		}
		if prevLetter {
			if c >= 'A' && c <= 'Z' {
				b[i] = c + ('a' - 'A')
			}
		} else if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
		prevLetter = true
	}
	return string(b)
}

// UpperSnakeToCamel converts "VK_FRONT_FACE_CLOCKWISE" into
// "VkFrontFaceClockwise".
func UpperSnakeToCamel(s string) string {
	return strings.ReplaceAll(Title(s), "_", "")
}

func isWordByte(c byte) bool {
	return isASCIILetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// JoinDeclTokens joins the pieces of a C declaration into a single line.
//
// Tokens are trimmed and separated by one space, except that no space
// is put before a token starting with one of "[]*),:;" or after a token
// ending in "[(". Empty tokens are dropped.
//
//	JoinDeclTokens([]string{"const", "void", "*", "pNext"}) == "const void* pNext"
func JoinDeclTokens(tokens []string) string {
	var b strings.Builder
	var prev string
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if prev != "" {
			space := true
			switch tok[0] {
			case '[', ']', '*', ')', ',', ':', ';':
				space = false
			}
			switch prev[len(prev)-1] {
			case '[', '(':
				space = false
			}
			if space && !isWordByte(tok[0]) && !isWordByte(prev[len(prev)-1]) && prev[len(prev)-1] != '*' {
				space = false
			}
			if space {
				b.WriteByte(' ')
			}
		}
		b.WriteString(tok)
		prev = tok
	}
	return b.String()
}
