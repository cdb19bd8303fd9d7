/*
 * authgate
 *
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

// Package hostpattern parses the MySQL grant-table host column into a
// canonical form and matches it against client addresses and hostnames.
package hostpattern

import (
	"encoding/binary"
	"net"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// Kind is the tag of the canonicalized host pattern.
type Kind uint8

const (
	// KindPrefix matches a numeric IPv4 prefix of Bits bits (Bits==0 matches any address).
	KindPrefix Kind = iota
	// KindSingleChar matches a dotted address string byte-for-byte, '_' matching any char.
	KindSingleChar
	// KindHostname matches a literal (possibly SQL-LIKE) hostname, never a numeric address.
	KindHostname
)

// Pattern is the canonical representation of a mysql.user.host value.
type Pattern struct {
	Kind Kind

	// Addr/Bits are valid for KindPrefix: the low 32-Bits bits of Addr are zero.
	Addr uint32
	Bits uint8

	// Literal holds the original pattern string for KindSingleChar and KindHostname.
	Literal string
}

// Parse canonicalizes a mysql.user.host value.
func Parse(input string) (Pattern, error) {
	if input == "%" {
		return Pattern{Kind: KindPrefix, Addr: 0, Bits: 0}, nil
	}

	if idx := strings.IndexByte(input, '/'); idx >= 0 {
		return parseNetmask(input[:idx], input[idx+1:])
	}

	if octets, bits, ok := tryParseWildcardIPv4(input); ok {
		addr := maskAddr(octets, bits)
		return Pattern{Kind: KindPrefix, Addr: addr, Bits: bits}, nil
	}

	if isIPv4Shape(input) && strings.ContainsRune(input, '_') {
		return Pattern{Kind: KindSingleChar, Literal: input}, nil
	}

	return Pattern{Kind: KindHostname, Literal: input}, nil
}

// parseNetmask rewrites an "addr/mask" pattern into the equivalent "%"-form
// and re-parses it, per the canonicalization table.
func parseNetmask(addr, mask string) (Pattern, error) {
	addrParts := strings.Split(addr, ".")
	maskParts := strings.Split(mask, ".")
	if len(addrParts) != 4 || len(maskParts) != 4 {
		return Pattern{}, errors.Errorf("hostpattern: malformed netmask form %q/%q", addr, mask)
	}
	for _, m := range maskParts {
		if m != "255" && m != "0" {
			return Pattern{}, errors.Errorf("hostpattern: netmask octet %q is neither 255 nor 0", m)
		}
	}

	rewritten := make([]string, 4)
	for i := 0; i < 4; i++ {
		if maskParts[i] == "0" && addrParts[i] == "0" {
			rewritten[i] = "%"
		} else {
			rewritten[i] = addrParts[i]
		}
	}
	return Parse(strings.Join(rewritten, "."))
}

// tryParseWildcardIPv4 recognizes a dotted IPv4 pattern, with or without a
// trailing run of "%" octets, including the short forms "a.%" and "a.b.%".
// It returns the four canonical octet strings and the prefix-bit count.
func tryParseWildcardIPv4(input string) ([4]string, uint8, bool) {
	var octets [4]string

	parts := strings.Split(input, ".")
	if len(parts) == 0 || len(parts) > 4 {
		return octets, 0, false
	}

	leading := 0
	for leading < len(parts) && isAllDigits(parts[leading]) {
		leading++
	}
	// everything after the numeric prefix must be exactly "%".
	for i := leading; i < len(parts); i++ {
		if parts[i] != "%" {
			return octets, 0, false
		}
	}
	if leading == 0 {
		return octets, 0, false
	}

	if len(parts) == 4 {
		for i := 0; i < 4; i++ {
			if i < leading {
				octets[i] = parts[i]
			} else {
				octets[i] = "0"
			}
		}
		return octets, uint8(leading * 8), true
	}

	// Short forms ("a.%", "a.b.%"): pad to four octets, the last of which is
	// written "1" rather than "0" so a dotted-quad parse never sees a
	// trailing-zero host octet.
	for i := 0; i < leading; i++ {
		octets[i] = parts[i]
	}
	for i := leading; i < 4; i++ {
		if i == 3 {
			octets[i] = "1"
		} else {
			octets[i] = "0"
		}
	}
	return octets, uint8(leading * 8), true
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	n, err := strconv.Atoi(s)
	return err == nil && n >= 0 && n <= 255
}

func isIPv4Shape(s string) bool {
	for _, part := range strings.Split(s, ".") {
		for _, r := range part {
			if r != '_' && (r < '0' || r > '9') {
				return false
			}
		}
	}
	return strings.Count(s, ".") == 3
}

func maskAddr(octets [4]string, bits uint8) uint32 {
	buf := make([]byte, 4)
	for i, o := range octets {
		n, _ := strconv.Atoi(o)
		buf[i] = byte(n)
	}
	addr := binary.BigEndian.Uint32(buf)
	return maskBits(addr, bits)
}

func maskBits(addr uint32, bits uint8) uint32 {
	if bits == 0 {
		return 0
	}
	if bits >= 32 {
		return addr
	}
	mask := ^uint32(0) << (32 - bits)
	return addr & mask
}

// MatchIPv4 reports whether the 4-byte big-endian address c satisfies p,
// when p is a numeric prefix pattern. It is not valid to call this for
// KindSingleChar or KindHostname patterns.
func (p Pattern) MatchIPv4(c uint32) bool {
	if p.Kind != KindPrefix {
		return false
	}
	return maskBits(c, p.Bits) == p.Addr
}

// MatchDotted reports whether the dotted-quad client address matches a
// KindSingleChar pattern, '_' standing for any single character.
func (p Pattern) MatchDotted(dotted string) bool {
	if p.Kind != KindSingleChar {
		return false
	}
	return likeMatch(p.Literal, dotted, true)
}

// MatchHostname reports whether a resolved client hostname matches a
// KindHostname pattern. Hostname patterns may themselves contain SQL
// wildcards ('%', '_'), mirroring mysql.user.host semantics.
func (p Pattern) MatchHostname(hostname string) bool {
	if p.Kind != KindHostname {
		return false
	}
	return likeMatch(p.Literal, hostname, false)
}

// likeMatch implements SQL-LIKE matching with '%' and '_' wildcards.
// caseSensitive controls whether '%'-free literal characters are compared
// case-sensitively; hostname matching in MySQL is case-insensitive, dotted
// IPv4 single-char matching is byte-for-byte.
func likeMatch(pattern, value string, caseSensitive bool) bool {
	if !caseSensitive {
		pattern = strings.ToLower(pattern)
		value = strings.ToLower(value)
	}
	return likeMatchBytes([]byte(pattern), []byte(value))
}

func likeMatchBytes(pattern, value []byte) bool {
	// Classic DP-free greedy matcher with backtracking, sized for short
	// hostnames/dotted-quads, not general-purpose glob input.
	var pi, vi, starIdx, starVi int
	starIdx, starVi = -1, -1
	for vi < len(value) {
		if pi < len(pattern) && (pattern[pi] == '_' || pattern[pi] == value[vi]) {
			pi++
			vi++
			continue
		}
		if pi < len(pattern) && pattern[pi] == '%' {
			starIdx = pi
			starVi = vi
			pi++
			continue
		}
		if starIdx >= 0 {
			pi = starIdx + 1
			starVi++
			vi = starVi
			continue
		}
		return false
	}
	for pi < len(pattern) && pattern[pi] == '%' {
		pi++
	}
	return pi == len(pattern)
}

// DottedToUint32 parses a dotted-quad IPv4 address string into its
// big-endian numeric form.
func DottedToUint32(s string) (uint32, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return 0, errors.Errorf("hostpattern: invalid IPv4 address %q", s)
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, errors.Errorf("hostpattern: %q is not an IPv4 address", s)
	}
	return binary.BigEndian.Uint32(v4), nil
}

// Uint32ToDotted formats a big-endian IPv4 numeric address as a dotted quad.
func Uint32ToDotted(addr uint32) string {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, addr)
	return net.IP(buf).String()
}
