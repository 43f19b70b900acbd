package api

import "regexp"

// tokenPattern matches the inline script assignment on the landing page:
//
//	api_token : 'abc123'
var tokenPattern = regexp.MustCompile(`api_token\s*:\s*'(\w+)'`)

// ExtractToken returns the api_token embedded in a landing page. All
// knowledge of the page markup lives here.
func ExtractToken(page []byte) (string, bool) {
	groups := tokenPattern.FindSubmatch(page)
	if len(groups) < 2 {
		return "", false
	}
	return string(groups[1]), true
}
