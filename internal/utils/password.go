package utils

import "golang.org/x/crypto/bcrypt"

// BcryptCost is the work factor for new hashes, set from BCRYPT_COST at
// startup. Tests lower it to bcrypt.MinCost.
var BcryptCost = bcrypt.DefaultCost

// HashPassword hashes password at BcryptCost.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(hashed), err
}

// CheckPasswordHash reports whether password matches hash. The cost is read
// from the hash itself, so hashes made before a BCRYPT_COST change still verify.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
