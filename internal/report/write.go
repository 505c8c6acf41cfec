package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrWrite indicates the result record could not be marshaled or could
// not be written to the configured output path.
var ErrWrite = errors.New("report: failed to write result")

// Write serializes result as UTF-8 JSON and writes it to path,
// overwriting any existing file.
func Write(path string, result Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrWrite, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	return nil
}
