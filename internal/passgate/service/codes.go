package service

import (
	"math/rand/v2"
	"strconv"
)

// CodeSource produces the 4-digit passcodes the registry hands out. It is an
// interface so the generator can be swapped (e.g. for crypto/rand, or a
// fixed sequence in tests) without touching the registry or state machine.
type CodeSource interface {
	Code() string
}

// PseudoRandomCodes draws codes from math/rand/v2's shared generator. The
// source is not cryptographically strong. Codes are always in 1000..9999 so
// they render as exactly four digits.
type PseudoRandomCodes struct{}

func (PseudoRandomCodes) Code() string {
	return strconv.Itoa(rand.IntN(9000) + 1000)
}
