package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/chazu/quarry/pkg/scene"
)

// WriteJSON writes s as indented JSON. Spatial indices are not included.
func WriteJSON(w io.Writer, s *scene.Scene) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("export: json: %w", err)
	}
	return nil
}
