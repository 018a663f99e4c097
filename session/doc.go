// Package session defines the short-lived session record issued by login and
// autologin.
//
// A user has at most one active session: the engine deletes every prior
// session for the user inside the same transaction that inserts the new one.
// Persistence lives behind store.SessionStore.
package session
