package handlers

import "strings"

// VerifyBearer checks an Authorization header against a static shared secret.
// A missing header or an unconfigured secret rejects instead of panicking.
// The secret is service-level and static, so a plain comparison is enough.
func VerifyBearer(header, secret string) bool {
	if header == "" || secret == "" {
		return false
	}

	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		// No Bearer prefix at all.
		return false
	}

	return token == secret
}
