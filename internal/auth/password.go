package auth

import "golang.org/x/crypto/bcrypt"

const bcryptCost = 12

type Hasher struct{ cost int }

func NewHasher() *Hasher { return &Hasher{cost: bcryptCost} }

func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
