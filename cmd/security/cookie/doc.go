// Package cookie signs and verifies the session cookie.
//
// The whole session is the cookie: an HS256-signed token whose subject is the
// holder's decimal identity id. There is no server-side session record, so
// clearing the cookie is the only invalidation.
package cookie
