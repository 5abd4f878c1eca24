package probe

import (
	"fmt"
	"os"
)

// writeSample writes the sampled bytes to path, replacing any existing file.
func writeSample(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("probe: save sample: %w", err)
	}
	return nil
}
