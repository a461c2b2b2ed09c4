// Package oauth runs the authorization-code handshake with external identity
// providers and reduces the result to a [sessionauth.ProviderIdentity].
//
// Only Google is wired. The handshake itself is delegated to
// golang.org/x/oauth2; state tokens come from the jwt package.
package oauth
