package redemption

import (
	"crypto/rand"
	"fmt"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateCode mints a well-formed unused code value.
func GenerateCode() (string, error) {
	groups := make([]string, 2)
	for i := range groups {
		buf := make([]byte, 4)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		chars := make([]byte, 4)
		for j, b := range buf {
			chars[j] = codeAlphabet[int(b)%len(codeAlphabet)]
		}
		groups[i] = string(chars)
	}

	return fmt.Sprintf("VERTX-TRAD-%s-%s-%d", groups[0], groups[1], GrantDays), nil
}
