package export

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/signals-cli/internal/model"
)

// WriteJSON renders leads as an indented JSON array.
func WriteJSON(w io.Writer, leads []model.LeadRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(leads); err != nil {
		return eris.Wrap(err, "export: encode json")
	}
	return nil
}

// WriteFile renders leads to path in the given format. An empty format is
// inferred from the path's extension.
func WriteFile(path string, format Format, leads []model.LeadRecord) error {
	if format == "" {
		inferred, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
		if err != nil {
			return eris.Wrapf(err, "export: infer format for %s", path)
		}
		format = inferred
	}

	if format == FormatXLSX {
		return WriteXLSX(path, leads)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	switch format {
	case FormatCSV:
		err = WriteCSV(f, leads)
	case FormatJSON:
		err = WriteJSON(f, leads)
	default:
		err = eris.Errorf("export: unknown format %q", format)
	}
	if err != nil {
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}
