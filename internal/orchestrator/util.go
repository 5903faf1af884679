package orchestrator

import (
	"encoding/json"
	"os"
)

// writeJSONFile writes v as indented JSON to path, creating parent
// directories is the caller's responsibility (the orchestrator creates a
// run's artifact directory before the pipeline starts).
func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
