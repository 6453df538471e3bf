package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// PosterId derives the stable anonymous id of a client address. The pepper keys an
// HMAC-SHA256 so ids can't be reversed by hashing the address space, and keeping the
// same pepper keeps bans valid across restarts.
func PosterId(addr, pepper string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(strings.ToLower(strings.TrimSpace(addr))))
	return hex.EncodeToString(mac.Sum(nil))
}
