package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/vectis-research/sinotrace/internal/model"
)

// WriteXLSX writes the review projection as an XLSX workbook with one
// sheet, same columns as the CSV projection.
func WriteXLSX(path string, records []*model.ClassifiedRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("review")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	hdr := sheet.AddRow()
	for _, h := range reviewHeader {
		hdr.AddCell().SetString(h)
	}

	for _, rec := range records {
		row := sheet.AddRow()
		for _, v := range reviewRow(rec) {
			row.AddCell().SetString(v)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
