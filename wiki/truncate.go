package wiki

import "unicode"

// TruncationMarker is appended to shortened extracts.
const TruncationMarker = " [...]"

// Truncate shortens text longer than max characters.
// The text is cut at the last whitespace at or before index max, and
// TruncationMarker is appended. Text without such a whitespace is cut at max;
// a whitespace at index 0 leaves only the marker.
// Text of at most max characters is returned unchanged.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	head := runes[:max]
	// the rune at index max may itself be the boundary
	cut := -1
	if unicode.IsSpace(runes[max]) {
		cut = max
	} else {
		for i := len(head) - 1; i >= 0; i-- {
			if unicode.IsSpace(head[i]) {
				cut = i
				break
			}
		}
	}
	if cut >= 0 {
		head = runes[:cut]
	}
	return string(head) + TruncationMarker
}
