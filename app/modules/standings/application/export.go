package standingsservice

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportStandingsXLSX renders a standings view as an Excel workbook for club
// admins. Columns: rank, team, movement.
func ExportStandingsXLSX(view StandingsView) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Standings"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name standings sheet: %w", err)
	}

	headers := []string{"Rank", "Team", "Movement"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	for rowIdx, entry := range view.Entries {
		row := rowIdx + 2
		if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", row), entry.Rank); err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, fmt.Sprintf("B%d", row), string(entry.TeamID)); err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, fmt.Sprintf("C%d", row), string(entry.Movement)); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize standings workbook: %w", err)
	}
	return buf.Bytes(), nil
}
