// Package config manages user-level settings stored at ~/.kytos/config.yaml:
// the daemon and NApps server addresses, NApps server credentials, logging
// and HTTP tuning. A Config is loaded once per process and handed to the
// components that need it.
package config
