package code

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
)

// Generator produces verification codes.
type Generator interface {
	Generate() (string, error)
}

// Numeric generates fixed-length decimal codes without a leading zero,
// uniform over [10^(n-1), 10^n - 1].
type Numeric struct {
	min  *big.Int
	span *big.Int
}

// NewNumeric returns a generator for codes of the given length (1..18).
func NewNumeric(length int) (*Numeric, error) {
	if length < 1 || length > 18 {
		return nil, fmt.Errorf("code length must be between 1 and 18, got %d", length)
	}
	lo := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length-1)), nil)
	hi := new(big.Int).Mul(lo, big.NewInt(10))
	if length == 1 {
		// single digit codes may be 0..9
		lo = big.NewInt(0)
	}
	return &Numeric{min: lo, span: new(big.Int).Sub(hi, lo)}, nil
}

func (g *Numeric) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, g.span)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return strconv.FormatInt(n.Add(n, g.min).Int64(), 10), nil
}
