package password

import "golang.org/x/crypto/bcrypt"

// Hash returns a salted bcrypt hash of the password. The salt and cost
// parameters are embedded in the returned string.
func Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether password matches hash. Mismatches and malformed
// hashes both return false, never an error.
func Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
