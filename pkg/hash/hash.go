package hash

import "golang.org/x/crypto/bcrypt"

// Password hashes a plaintext password with bcrypt. The default cost keeps
// verification in the tens of milliseconds on current hardware.
func Password(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored bcrypt hash. A
// malformed hash yields false, never an error.
func Verify(plaintext, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}
