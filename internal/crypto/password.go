package crypto

import "golang.org/x/crypto/bcrypt"

// PasswordHasher abstracts the one-way salted hash applied to credentials
// so the algorithm can change without touching service logic.
type PasswordHasher interface {
	Hash(plain string) ([]byte, error)
	Compare(hash []byte, plain string) error
}

// BcryptHasher hashes passwords with bcrypt. A zero Cost uses the bcrypt
// default.
type BcryptHasher struct {
	Cost int
}

var _ PasswordHasher = BcryptHasher{}

// Hash hashes plaintext using bcrypt.
func (h BcryptHasher) Hash(plain string) ([]byte, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return bcrypt.GenerateFromPassword([]byte(plain), cost)
}

// Compare compares plaintext to a stored hash.
func (h BcryptHasher) Compare(hash []byte, plain string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain))
}
