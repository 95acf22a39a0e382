package fuzzy

import "strings"

var soundexCodes = map[rune]byte{
	'B': '1', 'F': '1', 'P': '1', 'V': '1',
	'C': '2', 'G': '2', 'J': '2', 'K': '2', 'Q': '2', 'S': '2', 'X': '2', 'Z': '2',
	'D': '3', 'T': '3',
	'L': '4',
	'M': '5', 'N': '5',
	'R': '6',
}

// Soundex computes the classic 4-character Soundex code for name, used by
// the fuzzy matcher as one of two phonetic-equality checks.
func Soundex(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	letters := make([]rune, 0, len(name))
	for _, r := range name {
		if r >= 'A' && r <= 'Z' {
			letters = append(letters, r)
		}
	}
	if len(letters) == 0 {
		return ""
	}

	var out strings.Builder
	out.WriteRune(letters[0])

	lastCode := soundexCodes[letters[0]]
	for _, r := range letters[1:] {
		code := soundexCodes[r]
		if code != 0 && code != lastCode {
			out.WriteByte(code)
		}
		if r != 'H' && r != 'W' {
			lastCode = code
		}
		if out.Len() >= 4 {
			break
		}
	}

	result := out.String()
	for len(result) < 4 {
		result += "0"
	}
	return result[:4]
}
