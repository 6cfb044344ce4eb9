package service

import "golang.org/x/crypto/bcrypt"

// hashSecret hashes a plaintext credential with bcrypt.
func hashSecret(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// checkSecret compares a bcrypt hash with a plaintext credential.
func checkSecret(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
