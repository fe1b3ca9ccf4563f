package token

import (
	"errors"
	"fmt"
	"log/slog"
)

// MinSecretLength is the shortest signing secret accepted. HS256 keys
// shorter than the hash output weaken the MAC.
const MinSecretLength = 32

// ErrWeakSecret is returned by NewSecret for secrets below MinSecretLength.
var ErrWeakSecret = errors.New("signing secret too short")

const redacted = "[REDACTED]"

// Secret is the process-wide HMAC signing key. It is built once at startup,
// copied on construction, and never mutated afterwards, so a single value can
// be shared by concurrent issuance and validation without locking.
//
// Secret deliberately refuses to print itself: fmt verbs, %#v, and slog all
// render a redacted marker.
type Secret struct {
	key []byte
}

// NewSecret copies key into a new Secret.
func NewSecret(key []byte) (Secret, error) {
	if len(key) < MinSecretLength {
		return Secret{}, fmt.Errorf("%w: got %d bytes, need at least %d", ErrWeakSecret, len(key), MinSecretLength)
	}
	k := make([]byte, len(key))
	copy(k, key)
	return Secret{key: k}, nil
}

// IsZero reports whether the secret was never initialized.
func (s Secret) IsZero() bool {
	return len(s.key) == 0
}

// String implements fmt.Stringer.
func (s Secret) String() string { return redacted }

// GoString implements fmt.GoStringer.
func (s Secret) GoString() string { return redacted }

// LogValue implements slog.LogValuer.
func (s Secret) LogValue() slog.Value { return slog.StringValue(redacted) }

// Format implements fmt.Formatter so that no verb can reach the key bytes.
func (s Secret) Format(f fmt.State, _ rune) {
	_, _ = f.Write([]byte(redacted))
}
