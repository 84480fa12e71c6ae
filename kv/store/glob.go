package store

// MatchGlob reports whether s matches pattern.
//
// The pattern dialect is deliberately small: "*" matches any run of bytes
// including the empty run, "?" matches exactly one byte, and every other
// byte matches itself. Matching is anchored to the whole string. There are
// no character classes and no escaping.
func MatchGlob(pattern, s string) bool {
	var (
		px, sx int
		// Backtracking state: position of the last "*" seen in the
		// pattern and the input position it was tried at.
		starPx = -1
		starSx int
	)

	for sx < len(s) {
		switch {
		case px < len(pattern) && pattern[px] == '*':
			// Try the greedy-empty expansion first; revisit on mismatch.
			starPx, starSx = px, sx
			px++
		case px < len(pattern) && (pattern[px] == '?' || pattern[px] == s[sx]):
			px++
			sx++
		case starPx >= 0:
			// Mismatch after a "*": grow its run by one byte and retry.
			starSx++
			px = starPx + 1
			sx = starSx
		default:
			return false
		}
	}

	// Trailing "*" runs match the empty suffix.
	for px < len(pattern) && pattern[px] == '*' {
		px++
	}

	return px == len(pattern)
}
