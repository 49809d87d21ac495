package ghclient

import "strings"

// tokenPrefixes are the documented GitHub token formats.
var tokenPrefixes = []string{"ghp_", "ghs_", "gho_", "ghu_", "github_pat_"}

// ValidToken reports whether token has a recognized GitHub token prefix.
func ValidToken(token string) bool {
	for _, p := range tokenPrefixes {
		if strings.HasPrefix(token, p) && len(token) > len(p) {
			return true
		}
	}
	return false
}
