package primitives

import "fmt"

// Identifier produces a URL-safe identifier of n characters from
// IdentifierAlphabet. Each output character is a random byte masked with
// 0x3F, which selects uniformly among the 64 alphabet entries without
// rejection sampling.
func Identifier(n int) (string, error) {
	raw, err := RandomBytes(n)
	if err != nil {
		return "", fmt.Errorf("generate identifier: %w", err)
	}
	out := make([]byte, n)
	for i, b := range raw {
		out[i] = IdentifierAlphabet[b&0x3F]
	}
	return string(out), nil
}

// PackageID returns a new "capsa_<22 chars>" package identifier.
func PackageID() (string, error) {
	body, err := Identifier(PackageIDLength)
	if err != nil {
		return "", err
	}
	return "capsa_" + body, nil
}

// FileID returns a new "file_<22 chars>.enc" file identifier.
func FileID() (string, error) {
	body, err := Identifier(FileIDLength)
	if err != nil {
		return "", err
	}
	return "file_" + body + ".enc", nil
}
