// Package registry is the client of the NApps server: it lists, fetches,
// uploads and deletes published NApps, authenticates users and downloads
// package files. Calls that need a token go through an Authenticator.
package registry
