// 19 Sep 2026 Functions for squeezing white space out of sequences
// pasted in from somewhere else.

package white

var asciiSpace = [256]bool{
	'\t': true, '\n': true, '\v': true, '\f': true, '\r': true, ' ': true,
}

var spaceOrDigit = func() (t [256]bool) {
	t = asciiSpace
	for c := '0'; c <= '9'; c++ {
		t[c] = true
	}
	return
}()

// squeeze copies everything not marked in drop towards the front of s.
// The length shrinks, the capacity stays.
func squeeze(s []byte, drop *[256]bool) []byte {
	n := 0
	for _, c := range s {
		if !drop[c] {
			s[n] = c
			n++
		}
	}
	return s[:n]
}

// Remove acts on a byte slice, in place and removes all the white
// space.
func Remove(ps *[]byte) { *ps = squeeze(*ps, &asciiSpace) }

// RemoveWhiteNum removes white space and digits, so a sequence
// copied with its line numbers is left with just the residues.
func RemoveWhiteNum(ps *[]byte) { *ps = squeeze(*ps, &spaceOrDigit) }
