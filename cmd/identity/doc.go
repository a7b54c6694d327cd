// Package identity holds Balcão's security principals: staff users with
// role labels, a tenant affiliation, and a numeric privilege level.
//
// The session subsystem treats this package as read-only, except for the
// last-login touch performed as a side effect of login.
package identity
