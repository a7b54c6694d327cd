// Package session implements Balcão's session lifecycle: issuance, rotation
// and revocation of paired short-lived access tokens and long-lived refresh
// tokens.
//
// Refresh tokens are grouped into families: every token descended from the
// same login shares a family id. Presenting a revoked or expired member is
// treated as reuse and revokes the entire family, containing token theft.
//
// Access tokens are stateless HS256 JWTs; refresh tokens are JWTs carrying
// only an opaque record id; all authority is resolved against the store.
//
// Transport (HTTP/cookies) integration is intentionally out of scope here.
package session
