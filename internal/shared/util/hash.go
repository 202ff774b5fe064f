package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	guestPrefix  = "guest:"
	ownerHashLen = 32
)

// OwnerKey returns a storage-safe directory for an owner ID. Guest and
// signed-in owners land in separate namespaces so guest uploads can be
// expired on their own.
func OwnerKey(owner string) string {
	sum := sha256.Sum256([]byte(owner))
	hash := hex.EncodeToString(sum[:])[:ownerHashLen]
	if strings.HasPrefix(owner, guestPrefix) {
		return "guests/" + hash
	}
	return "users/" + hash
}
