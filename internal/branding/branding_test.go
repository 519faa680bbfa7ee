package branding

import "testing"

func TestEmbeddedValues(t *testing.T) {
	if got := CLIName(); got != "kytos" {
		t.Errorf("CLIName() = %q, want kytos", got)
	}
	if got := EnvVar("config"); got != "KYTOS_CONFIG" {
		t.Errorf("EnvVar(config) = %q, want KYTOS_CONFIG", got)
	}
	if got := DaemonAPI(); got != "http://localhost:8181/" {
		t.Errorf("DaemonAPI() = %q", got)
	}
	if got := UserAgent("2024.1"); got != "kytos-utils/2024.1" {
		t.Errorf("UserAgent() = %q", got)
	}
}
