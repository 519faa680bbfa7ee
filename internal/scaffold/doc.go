// Package scaffold generates NApp working copies from embedded templates and
// derives their openapi.yml from the @rest routes declared in main.py. It
// powers the "kytos napps create" and "kytos napps prepare" commands.
package scaffold
