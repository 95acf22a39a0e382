package fuzzy

import "strings"

// Metaphone computes a simplified Metaphone phonetic key: a second,
// independent phonetic-equality signal alongside Soundex. This is a
// reduced rule set covering the common English/Spanish name transforms
// (silent letters, digraphs, hard/soft C and G) rather than the full
// original algorithm's exhaustive exception table.
func Metaphone(name string) string {
	s := strings.ToUpper(strings.TrimSpace(name))
	if s == "" {
		return ""
	}

	runes := []rune(s)
	n := len(runes)
	var out strings.Builder

	isVowel := func(r rune) bool {
		switch r {
		case 'A', 'E', 'I', 'O', 'U':
			return true
		}
		return false
	}

	i := 0
	// Skip known silent leading pairs.
	if n >= 2 {
		switch string(runes[:2]) {
		case "KN", "GN", "PN", "AE", "WR":
			i = 1
		}
	}

	for i < n {
		r := runes[i]
		if i > 0 && r == runes[i-1] && r != 'C' {
			i++
			continue // skip doubled letters except CC
		}

		switch r {
		case 'A', 'E', 'I', 'O', 'U':
			if i == 0 {
				out.WriteRune(r)
			}
		case 'B':
			if !(i == n-1 && i > 0 && runes[i-1] == 'M') {
				out.WriteByte('B')
			}
		case 'C':
			switch {
			case i+2 < n && runes[i+1] == 'I' && runes[i+2] == 'A':
				out.WriteByte('X')
			case i+1 < n && runes[i+1] == 'H':
				out.WriteByte('X')
				i++
			case i+1 < n && (runes[i+1] == 'I' || runes[i+1] == 'E' || runes[i+1] == 'Y'):
				out.WriteByte('S')
			default:
				out.WriteByte('K')
			}
		case 'D':
			if i+2 < n && runes[i+1] == 'G' && (runes[i+2] == 'E' || runes[i+2] == 'Y' || runes[i+2] == 'I') {
				out.WriteByte('J')
				i += 2
			} else {
				out.WriteByte('T')
			}
		case 'G':
			switch {
			case i+1 < n && runes[i+1] == 'H':
				i++
				if i+1 >= n || !isVowel(runes[i+1]) {
					// silent GH
				} else {
					out.WriteByte('F')
				}
			case i+1 < n && (runes[i+1] == 'I' || runes[i+1] == 'E' || runes[i+1] == 'Y'):
				out.WriteByte('J')
			default:
				out.WriteByte('K')
			}
		case 'H':
			if i > 0 && isVowel(runes[i-1]) && (i+1 >= n || !isVowel(runes[i+1])) {
				// silent H between a vowel and a consonant/end
			} else {
				out.WriteByte('H')
			}
		case 'K':
			if !(i > 0 && runes[i-1] == 'C') {
				out.WriteByte('K')
			}
		case 'P':
			if i+1 < n && runes[i+1] == 'H' {
				out.WriteByte('F')
				i++
			} else {
				out.WriteByte('P')
			}
		case 'Q':
			out.WriteByte('K')
		case 'S':
			if i+2 < n && runes[i+1] == 'I' && (runes[i+2] == 'O' || runes[i+2] == 'A') {
				out.WriteByte('X')
			} else if i+1 < n && runes[i+1] == 'H' {
				out.WriteByte('X')
				i++
			} else {
				out.WriteByte('S')
			}
		case 'T':
			if i+2 < n && runes[i+1] == 'I' && (runes[i+2] == 'O' || runes[i+2] == 'A') {
				out.WriteByte('X')
			} else if i+1 < n && runes[i+1] == 'H' {
				out.WriteByte('0')
				i++
			} else {
				out.WriteByte('T')
			}
		case 'V':
			out.WriteByte('F')
		case 'W', 'Y':
			if i+1 < n && isVowel(runes[i+1]) {
				out.WriteRune(r)
			}
		case 'X':
			out.WriteString("KS")
		case 'Z':
			out.WriteByte('S')
		case 'F', 'J', 'L', 'M', 'N', 'R':
			out.WriteRune(r)
		}
		i++
	}

	key := out.String()
	if len(key) > 6 {
		key = key[:6]
	}
	return key
}
