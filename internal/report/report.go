package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"flip-finder/internal/models"
)

const sheetName = "Opportunities"

var headers = []string{
	"Title", "Platform", "Asking Price", "Estimated Value",
	"Verified Value", "Discount %", "Value Score", "Sellability",
	"Difficulty", "Status", "URL",
}

// WriteOpportunities exports listings to an xlsx workbook at path, one
// row per listing.
func WriteOpportunities(path string, listings []models.Listing) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for row, l := range listings {
		values := []any{
			l.Title, l.Platform, l.AskingPrice, l.EstimatedValue,
			l.VerifiedMarketValue, l.DiscountPercent, l.ValueScore,
			l.SellabilityScore, l.ResaleDifficulty, l.Status, l.URL,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", row+1, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report %s: %w", path, err)
	}
	return nil
}
