// Package jwt signs and verifies the short-lived state tokens that carry an
// OAuth handshake from the authorization redirect to the callback.
//
// A state token binds a random nonce, which the request layer also keeps in
// a cookie, and the path to return to after login. Tokens are HS256 by
// default; Ed25519 is available when the signing key must not be shared.
package jwt
