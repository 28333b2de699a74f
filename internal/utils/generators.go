package utils

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

// Crockford alphabet: no I, L, O or U.
const referralAlphabet = "ABCDEFGHJKMNPQRSTVWXYZ0123456789"

const ReferralCodeLength = 8

func NewID() string {
	return uuid.NewString()
}

func GenerateReferralCode() string {
	code := make([]byte, ReferralCodeLength)
	max := big.NewInt(int64(len(referralAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return fallbackReferralCode()
		}
		code[i] = referralAlphabet[n.Int64()]
	}
	return string(code)
}

func fallbackReferralCode() string {
	id := uuid.New()
	code := make([]byte, ReferralCodeLength)
	for i := range code {
		code[i] = referralAlphabet[int(id[i])%len(referralAlphabet)]
	}
	return string(code)
}
