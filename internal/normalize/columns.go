package normalize

import "salesdash/internal/core"

// Canonical column names of the sales feeds.
const (
	ColSale        = "Sale In Cr"
	ColTravelMonth = "Travel M"
	ColTravelYear  = "Travel Y"
	ColRegion      = "REGION"
	ColTourStart   = "TOUR START DATE"
	ColFileDate    = "FILE_DATE"
	ColPax         = "TOTAL_PAX"
	ColQuarter     = "Travel Qtr"
	ColBusiness    = "Final Buniess"
	ColDestination = "Destination"
	ColFileType    = "FILE_TYPE"
	ColSubRegion   = "REGION_B"
	ColFileSubType = "FILE_SUB_TYPE"
)

var (
	requiredColumns = []string{ColSale, ColTravelMonth, ColTravelYear}

	optionalColumns = []string{
		ColRegion, ColTourStart, ColFileDate, ColPax, ColQuarter,
		ColBusiness, ColDestination, ColFileType, ColSubRegion, ColFileSubType,
	}
)

// Renames maps source-specific column spellings to canonical names.
var Renames = map[core.Source]map[string]string{
	core.Recent: {
		"TOUR_START_DATE": ColTourStart,
	},
	core.Historical: {
		"TOUR_START_DATE":   ColTourStart,
		"Group Destination": ColDestination,
	},
}
