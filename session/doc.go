/*
Package session implements the per-connection protocol state machine of the
mail service: line-framed request parsing, the login gate with its
failed-attempt budget and blacklist escalation, and the command handlers
mapping SEND, LIST, READ and DEL onto the mailbox store.
*/
package session
