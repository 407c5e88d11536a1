package export

import (
	"slices"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/signals-cli/internal/model"
)

var scoreColumn = slices.Index(leadHeader, "score")

// WriteXLSX renders leads as a single-sheet workbook at path. The score
// column is written as a number so spreadsheet sorting works without a cast.
func WriteXLSX(path string, leads []model.LeadRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, name := range leadHeader {
		header.AddCell().Value = name
	}

	for _, lead := range leads {
		row := sheet.AddRow()
		for i, val := range leadRow(lead) {
			cell := row.AddCell()
			if i == scoreColumn {
				cell.SetFloat(lead.Score)
				continue
			}
			cell.Value = val
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", path)
	}
	return nil
}
