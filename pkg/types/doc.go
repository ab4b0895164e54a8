// Package types defines the Database and Store interfaces, the persisted
// record types (cards, media, deck registry entries), configuration, and the
// standard error values for the ganki deck editor.
//
// A Database is one embedded store file: one per deck namespace for cards,
// plus a single shared file for media. Callers attach, fetch a Store by kind,
// and detach when done.
package types
