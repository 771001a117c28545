package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Identity is a participant account identifier in the sale ledger.
// This is a domain primitive that enforces validity at parse time: a
// 20-byte hex address with 0x prefix, stored lowercase.
type Identity string

// ZeroIdentity is the null placeholder address. It is never a valid
// actor or beneficiary; operations that receive it fail with an
// invalid-identity error.
const ZeroIdentity Identity = "0x0000000000000000000000000000000000000000"

var identityPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ParseIdentity validates and normalizes an identity string.
func ParseIdentity(s string) (Identity, error) {
	if !identityPattern.MatchString(s) {
		return "", fmt.Errorf("malformed identity: %q", s)
	}
	return Identity(strings.ToLower(s)), nil
}

// String returns the string representation of the identity.
func (i Identity) String() string {
	return string(i)
}

// IsZero reports whether the identity is empty or the null placeholder.
func (i Identity) IsZero() bool {
	return i == "" || i == ZeroIdentity
}
