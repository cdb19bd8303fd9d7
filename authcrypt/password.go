/*
 * authgate
 *
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

// Package authcrypt implements the MySQL "mysql_native_password" challenge
// response check, the same SHA1-over-SHA1 construction used throughout the
// mysql.user authentication_string/password columns.
package authcrypt

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/juju/errors"
)

// ScrambleSize is the length in bytes of the server scramble and the
// client token.
const ScrambleSize = 20

// CheckNativePassword verifies a client's challenge response against the
// stored double-SHA1 password hash.
//
//	stored      = unhex(storedHex)                          // SHA1(SHA1(password))
//	step1       = SHA1(scramble || stored)
//	passwordSHA1 = clientToken XOR step1                     // SHA1(password)
//	candidate   = SHA1(passwordSHA1)
//	authenticated = candidate == stored
//
// An empty storedHex denotes a passwordless account: it authenticates iff
// clientToken is also empty. A mismatched clientToken length (other than
// empty) never authenticates.
func CheckNativePassword(storedHex string, clientToken, serverScramble []byte) (authenticated bool, passwordSHA1 []byte, err error) {
	storedHex = strings.TrimPrefix(storedHex, "*")

	passwordless := storedHex == ""
	var stored []byte
	if passwordless {
		stored = make([]byte, ScrambleSize)
	} else {
		stored, err = hex.DecodeString(storedHex)
		if err != nil {
			return false, nil, errors.Annotatef(err, "authcrypt: malformed stored hash %q", storedHex)
		}
	}

	if len(clientToken) == 0 {
		if passwordless {
			return true, emptyPasswordSHA1(), nil
		}
		return false, nil, nil
	}
	if len(clientToken) != ScrambleSize || len(stored) != ScrambleSize {
		return false, nil, nil
	}

	h := sha1.New()
	h.Write(serverScramble)
	h.Write(stored)
	step1 := h.Sum(nil)

	passwordSHA1 = make([]byte, ScrambleSize)
	for i := range passwordSHA1 {
		passwordSHA1[i] = clientToken[i] ^ step1[i]
	}

	h.Reset()
	h.Write(passwordSHA1)
	candidate := h.Sum(nil)

	return bytes.Equal(candidate, stored), passwordSHA1, nil
}

func emptyPasswordSHA1() []byte {
	h := sha1.New()
	return h.Sum(nil)
}

// HashPassword computes the mysql.user authentication_string/password
// value (hex double-SHA1, without the leading '*') for a plaintext
// password. It is used by tests and by any tooling that needs to seed a
// backend's grant tables with a known credential.
func HashPassword(password string) string {
	if password == "" {
		return ""
	}
	h := sha1.New()
	h.Write([]byte(password))
	stage1 := h.Sum(nil)

	h.Reset()
	h.Write(stage1)
	stage2 := h.Sum(nil)

	return hex.EncodeToString(stage2)
}

// Scramble computes the client token a real MySQL client would send for
// password given serverScramble, for use in tests:
// token = SHA1(password) XOR SHA1(scramble || SHA1(SHA1(password))).
func Scramble(password string, serverScramble []byte) []byte {
	if password == "" {
		return nil
	}
	h := sha1.New()
	h.Write([]byte(password))
	stage1 := h.Sum(nil)

	h.Reset()
	h.Write(stage1)
	stage2 := h.Sum(nil)

	h.Reset()
	h.Write(serverScramble)
	h.Write(stage2)
	step1 := h.Sum(nil)

	token := make([]byte, ScrambleSize)
	for i := range token {
		token[i] = stage1[i] ^ step1[i]
	}
	return token
}
