/*
Package auth defines potentially multiple mechanisms to determine whether user
credentials supplied during session login can be found in a defined user
information system. Included are a verifier binding against an external LDAP
directory, one backed by a users table in a PostgreSQL database, and a simple
lookup in a local credentials file. All verifiers fail closed: any transport
or lookup error counts as a rejected login.
*/
package auth
