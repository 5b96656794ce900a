package hexconv

// Invalid marks bytes which aren't hexadecimal digits in Halfbyte.
const Invalid = 0xFF

// Halfbyte maps an ASCII hex digit into its value. Every other byte maps into Invalid.
var Halfbyte = func() (table [256]byte) {
	for i := range table {
		table[i] = Invalid
	}

	for c := '0'; c <= '9'; c++ {
		table[c] = byte(c - '0')
	}

	for c := 'a'; c <= 'f'; c++ {
		table[c] = byte(c-'a') + 0xa
		table[c-'a'+'A'] = byte(c-'a') + 0xa
	}

	return table
}()

// Decode returns the byte encoded by two hex digits. ok is false if any of them is invalid.
func Decode(high, low byte) (c byte, ok bool) {
	h, l := Halfbyte[high], Halfbyte[low]
	if h == Invalid || l == Invalid {
		return 0, false
	}

	return h<<4 | l, true
}
