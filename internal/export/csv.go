package export

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/signals-cli/internal/model"
)

// WriteCSV renders leads as RFC 4180 CSV with a header row.
func WriteCSV(w io.Writer, leads []model.LeadRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(leadHeader); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, lead := range leads {
		if err := cw.Write(leadRow(lead)); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", lead.Domain)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}
