// Package cityhash implements CityHash128, the 128-bit content hash the
// native wire format uses to checksum compressed frames (spec §4.4, §6).
//
// No library in the example corpus ships a CityHash128 implementation —
// the one hash package present, cespare/xxhash/v2, is XXH64 and is not
// wire-compatible (see DESIGN.md). This is a direct, from-source port of
// the published Google CityHash v1.1 128-bit algorithm (the same algorithm
// family ClickHouse vendors as its own cityhash contrib module), the same
// approach the reference Go client takes: it vendors its own CityHash port
// rather than pulling in a generic hash library.
package cityhash

import "encoding/binary"

const (
	k0   uint64 = 0xc3a5c85c97cb3127
	k1   uint64 = 0xb492b66fbe98f273
	k2   uint64 = 0x9ae16a3b2f90404f
	k3   uint64 = 0xc949d7c7509e6557
	kMul uint64 = 0x9ddfea08eb382d69
)

func rotate(val uint64, shift uint) uint64 {
	if shift == 0 {
		return val
	}
	return (val >> shift) | (val << (64 - shift))
}

// rotateByAtLeast1 is rotate specialized for shift values guaranteed >= 1,
// matching the reference implementation's naming (it avoids UB on
// shift==0 in C++ by construction, not by a runtime branch).
func rotateByAtLeast1(val uint64, shift uint) uint64 {
	return (val >> shift) | (val << (64 - shift))
}

func shiftMix(val uint64) uint64 {
	return val ^ (val >> 47)
}

func fetch64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }
func fetch32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

func hash128to64(lo, hi uint64) uint64 {
	a := (lo ^ hi) * kMul
	a ^= a >> 47
	b := (hi ^ a) * kMul
	b ^= b >> 47
	b *= kMul
	return b
}

func hashLen16(u, v uint64) uint64 { return hash128to64(u, v) }

func hashLen0to16(s []byte) uint64 {
	n := len(s)
	switch {
	case n > 8:
		a := fetch64(s)
		b := fetch64(s[n-8:])
		return hashLen16(a, rotateByAtLeast1(b+uint64(n), uint(n))) ^ b
	case n >= 4:
		a := uint64(fetch32(s))
		return hashLen16(uint64(n)+(a<<3), uint64(fetch32(s[n-4:])))
	case n > 0:
		a := s[0]
		b := s[n>>1]
		c := s[n-1]
		y := uint32(a) + uint32(b)<<8
		z := uint32(n) + uint32(c)<<2
		return shiftMix(uint64(y)*k2^uint64(z)*k3) * k2
	default:
		return k2
	}
}

type pair struct{ a, b uint64 }

func weakHashLen32WithSeedsRaw(w, x, y, z, a, b uint64) pair {
	a += w
	b = rotate(b+a+z, 21)
	c := a
	a += x
	a += y
	b += rotate(a, 44)
	return pair{a + z, b + c}
}

func weakHashLen32WithSeeds(s []byte, a, b uint64) pair {
	return weakHashLen32WithSeedsRaw(fetch64(s), fetch64(s[8:]), fetch64(s[16:]), fetch64(s[24:]), a, b)
}

func cityMurmur(s []byte, seedLo, seedHi uint64) (lo, hi uint64) {
	a := seedLo
	b := seedHi
	var c, d uint64
	l := len(s) - 16

	if l <= 0 { // len <= 16
		a = shiftMix(a*k1) * k1
		c = b*k1 + hashLen0to16(s)
		var u uint64
		if len(s) >= 8 {
			u = fetch64(s)
		} else {
			u = c
		}
		d = shiftMix(a + u)
	} else {
		c = hashLen16(fetch64(s[len(s)-8:])+k1, a)
		d = hashLen16(b+uint64(len(s)), c+fetch64(s[len(s)-16:]))
		a += d
		i := 0
		for {
			a ^= shiftMix(fetch64(s[i:])*k1) * k1
			a *= k1
			b ^= a
			c ^= shiftMix(fetch64(s[i+8:])*k1) * k1
			c *= k1
			d ^= c
			i += 16
			l -= 16
			if l <= 0 {
				break
			}
		}
	}
	a = hashLen16(a, c)
	b = hashLen16(d, b)
	return a ^ b, hashLen16(b, a)
}

// Sum128WithSeed computes CityHash128 of data seeded with (seedLo, seedHi),
// returning the hash as (low64, high64).
func Sum128WithSeed(data []byte, seedLo, seedHi uint64) (lo, hi uint64) {
	if len(data) < 128 {
		return cityMurmur(data, seedLo, seedHi)
	}

	x := seedLo
	y := seedHi
	z := uint64(len(data)) * k1

	v1 := rotate(y^k1, 49)*k1 + fetch64(data)
	v2 := rotate(v1, 42)*k1 + fetch64(data[8:])
	w1 := rotate(y+z, 35)*k1 + x
	w2 := rotate(x+fetch64(data[88:]), 53) * k1

	s := data
	remaining := len(data)
	round := func() {
		x = rotate(x+y+v1+fetch64(s[8:]), 37) * k1
		y = rotate(y+v2+fetch64(s[48:]), 42) * k1
		x ^= w2
		y += v1 + fetch64(s[40:])
		z = rotate(z+w1, 33) * k1
		vv := weakHashLen32WithSeeds(s, v2*k1, x+w1)
		v1, v2 = vv.a, vv.b
		ww := weakHashLen32WithSeeds(s[32:], z+w2, y+fetch64(s[16:]))
		w1, w2 = ww.a, ww.b
		z, x = x, z
		s = s[64:]
	}

	for remaining >= 128 {
		round()
		round()
		remaining -= 128
	}

	x += rotate(v1+z, 49) * k0
	y = y*k0 + rotate(w2, 37)
	z = z*k0 + rotate(w1, 27)
	w1 *= 9
	v1 *= k0

	for tailDone := 0; tailDone < remaining; {
		tailDone += 32
		tail := s[remaining-tailDone:]
		y = rotate(x+y, 42)*k0 + v2
		w1 += fetch64(tail[16:])
		x = x*k0 + w1
		z += w2 + fetch64(tail)
		w2 += v1
		vv := weakHashLen32WithSeeds(tail, v1+z, v2)
		v1, v2 = vv.a, vv.b
		v1 *= k0
	}

	x = hashLen16(x, v1)
	y = hashLen16(y+z, w1)
	return hashLen16(x+v2, w2) + y, hashLen16(x+w2, y+v2)
}

// Sum128 computes CityHash128 of data with the algorithm's default seed
// derivation, matching the reference server's unseeded call site.
func Sum128(data []byte) (lo, hi uint64) {
	if len(data) >= 16 {
		return Sum128WithSeed(data[16:], fetch64(data)+k0, fetch64(data[8:]))
	}
	if len(data) >= 8 {
		return Sum128WithSeed(data, fetch64(data)+k0, k1)
	}
	return Sum128WithSeed(data, k0, k1)
}

// Sum128Bytes returns the 16-byte little-endian encoding the wire format
// uses: the low 64 bits first, then the high 64 bits.
func Sum128Bytes(data []byte) [16]byte {
	lo, hi := Sum128(data)
	var out [16]byte
	binary.LittleEndian.PutUint64(out[0:8], lo)
	binary.LittleEndian.PutUint64(out[8:16], hi)
	return out
}
