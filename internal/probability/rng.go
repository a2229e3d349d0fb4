package probability

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
)

// RandomSource yields uniform values in [0, 1).
type RandomSource interface {
	Float64() float64
}

// cryptoSeed draws a PCG seed from crypto/rand, falling back to math/rand/v2.
func cryptoSeed() uint64 {
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		return rand.Uint64()
	}
	return binary.BigEndian.Uint64(buf[:])
}

// DefaultRNG is a PCG generator seeded from crypto/rand. Estimation draws
// millions of values, so the crypto source only seeds it.
func DefaultRNG() RandomSource { return NewSeededRNG(cryptoSeed()) }

// Replicable RNG (tests, reproducible estimates)
type seededRNG struct{ r *rand.Rand }

func NewSeededRNG(seed uint64) RandomSource {
	return &seededRNG{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seededRNG) Float64() float64 { return s.r.Float64() }

// areaRNG derives an independent generator per area so concurrent areas
// never share a source.
func areaRNG(seed uint64, area string) RandomSource {
	if seed == 0 {
		return DefaultRNG()
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(area))
	return NewSeededRNG(seed ^ h.Sum64())
}
