package identity

import gonanoid "github.com/matoous/go-nanoid/v2"

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GeneratePassword returns a 12-character alphanumeric password from a
// cryptographic source.
func GeneratePassword() (string, error) {
	return gonanoid.Generate(passwordAlphabet, 12)
}
