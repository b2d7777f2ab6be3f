package addr

// Match reports whether the first bits bits of a and network agree.
// bits counts over the 128-bit form; 0 and values above 128 never match.
func Match(a, network Address, bits int) bool {
	if bits <= 0 || bits > 128 || !a.IsValid() || !network.IsValid() {
		return false
	}
	x, n := a.Bytes(), network.Bytes()

	full, rem := bits/8, bits%8
	for i := 0; i < full; i++ {
		if x[i] != n[i] {
			return false
		}
	}
	if rem == 0 {
		return true
	}
	mask := ^byte((1 << (8 - rem)) - 1)
	return x[full]&mask == n[full]&mask
}

// PrefixBits converts a prefix length written against an address into the
// 128-bit form Match uses. IPv4 lengths run 1..32 and shift by 96 for the
// mapped prefix. ok is false when the length is out of range for the family.
func PrefixBits(network Address, n int) (bits int, ok bool) {
	if network.Is4() {
		if n < 1 || n > 32 {
			return 0, false
		}
		return n + 96, true
	}
	if n < 1 || n > 128 {
		return 0, false
	}
	return n, true
}
