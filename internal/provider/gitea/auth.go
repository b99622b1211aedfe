package gitea

import "encoding/base64"

// basicAuthHeader builds the Authorization header value for token auth.
// Gitea and Forgejo accept an access token as the basic-auth password; an
// empty username yields ":token", which some forges also accept.
func basicAuthHeader(username, token string) string {
	if token == "" {
		return ""
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+token))
}
