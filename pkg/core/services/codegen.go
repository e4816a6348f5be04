package services

import (
	"crypto/rand"
	"math/big"

	"github.com/aurora-borealis222/url-shortener/pkg/ports"
)

const codeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeLength is the length of generated short codes. 62^5 gives roughly
// 916 million combinations, so collisions are checked, not prevented.
const CodeLength = 5

// CodeGenerator produces random short codes from the alphanumeric alphabet
// using a cryptographically secure source.
type CodeGenerator struct {
	length int
}

func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{length: CodeLength}
}

// Generate returns a new random code. It has no side effects; uniqueness is
// the caller's responsibility.
func (g *CodeGenerator) Generate() (string, error) {
	b := make([]byte, g.length)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[num.Int64()]
	}
	return string(b), nil
}

var _ ports.CodeGenerator = (*CodeGenerator)(nil)
