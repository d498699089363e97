package game

// lcg is the Lehmer/Park-Miller multiplicative linear congruential
// generator (the algorithm behind C++'s std::minstd_rand: multiplier
// 48271, modulus 2^31-1, increment 0), grounded on the reference
// implementation this system was distilled from. The draw order it is used
// in — every player's spawn position in ascending PlayerId order, then each
// initial block in placement order — is what makes turn 0 reproducible
// across independently-run servers given the same seed and join order.
type lcg struct {
	state uint64
}

const (
	lcgMultiplier = 48271
	lcgModulus    = 2147483647 // 2^31 - 1, a Mersenne prime
)

// newLCG seeds the generator. A multiplicative LCG cannot recover from a
// zero state (it would produce zero forever), so a seed that reduces to zero
// modulo 2^31-1 (0 or 2147483647) is folded to 1; no other seed is affected.
func newLCG(seed uint32) *lcg {
	s := uint64(seed) % lcgModulus
	if s == 0 {
		s = 1
	}
	return &lcg{state: s}
}

// next returns the generator's next value in [1, modulus-1].
func (g *lcg) next() uint32 {
	g.state = (g.state * lcgMultiplier) % lcgModulus
	return uint32(g.state)
}

// intn returns a value in [0, n) by reduction, matching `rand() % n` in the
// reference server.
func (g *lcg) intn(n uint16) uint16 {
	if n == 0 {
		return 0
	}
	return uint16(g.next() % uint32(n))
}
