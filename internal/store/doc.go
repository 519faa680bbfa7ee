// Package store manages NApps directly on disk: the installed root holds
// one directory per NApp and the enabled root holds links to them. It backs
// installs from working copies and the controller used with --offline.
package store
