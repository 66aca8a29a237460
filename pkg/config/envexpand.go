package config

import "os"

// ExpandEnv expands ${VAR} / $VAR references in YAML content using the
// standard library, for secrets and per-environment overrides. Missing
// variables expand to the empty string; Validate() checks the dependency
// graph and scoring coverage only, so a field left empty by that is not
// reported.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
