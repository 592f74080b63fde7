package utils

import "golang.org/x/crypto/bcrypt"

// PasswordCost is the bcrypt work factor; tests lower it to bcrypt.MinCost.
var PasswordCost = 14

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	return string(bytes), err
}

// CheckPasswordHash compares a plain password against a stored bcrypt hash;
// the salt is read from the hash itself.
func CheckPasswordHash(password, hashedPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
