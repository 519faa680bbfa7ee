// Package cli defines the Cobra command tree for the kytos CLI. Each file
// registers one command group (napps, web, users, config, doctor, version)
// with the root command. Commands delegate to internal packages for the
// business logic and only handle flag parsing, I/O formatting and user
// interaction.
package cli
