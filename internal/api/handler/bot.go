package handler

import (
	"crypto/subtle"
)

// botAuthorized compares the caller's shared secret in constant time; an unset secret rejects everything
func botAuthorized(configured, given string) bool {
	if configured == "" || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(given)) == 1
}
