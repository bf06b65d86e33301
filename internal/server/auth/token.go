package auth

import (
	"fmt"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/server/models"
)

// MinTokenSize is the minimum remember token entropy, in bytes.
const MinTokenSize = 16

// RememberTokenGenerator issues opaque remember tokens: size random bytes
// from crypto/rand, hex-encoded.
type RememberTokenGenerator struct {
	size int
}

// NewRememberTokenGenerator clamps size to MinTokenSize.
func NewRememberTokenGenerator(size int) *RememberTokenGenerator {
	if size < MinTokenSize {
		size = MinTokenSize
	}
	return &RememberTokenGenerator{size: size}
}

// randHex is a seam for tests that need the random source to fail.
var randHex = common.MakeRandHexString

func (g *RememberTokenGenerator) Generate() (string, error) {
	token, err := randHex(g.size)
	if err != nil {
		return "", fmt.Errorf("error generating remember token: %w", err)
	}
	return token, nil
}

// Assign gives u a token unless it already has one. Tokens are set once per
// account.
func (g *RememberTokenGenerator) Assign(u *models.User) error {
	if u.RememberToken != "" {
		return nil
	}
	token, err := g.Generate()
	if err != nil {
		return err
	}
	u.RememberToken = token
	return nil
}
