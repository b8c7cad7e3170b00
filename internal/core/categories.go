package core

// Canonical category lists shared by the aggregator and the HTTP output,
// so chart axes and the values the code checks for cannot drift apart.
var (
	// Months is the fixed month axis.
	Months = monthNames[:]

	// KPIBusinesses are the business lines with their own KPI card.
	KPIBusinesses = []string{"LOLH", "LOSH", "LTDM", "AIR"}

	// ContributionFileTypes are the slices of the file type contribution chart.
	ContributionFileTypes = []string{"GIT", "FIT", "AIR"}

	// TargetFileTypes are the file types targets are set for.
	TargetFileTypes = []string{"FIT", "GIT"}

	// FileTypeBusinesses get a per-business file type target panel.
	FileTypeBusinesses = []string{"LOLH", "LOSH", "LTDM"}

	// ManagedSubTypes are the file sub-types accounted to ManagedBusinessArea.
	ManagedSubTypes = []string{"ESCORTED TOUR", "CRUISE", "RAIL"}
)

const (
	// ManagedBusinessArea overrides the business line for managed sub-types.
	ManagedBusinessArea = "NTCIL"

	// UnknownBusinessArea is used when a source carries no business line at all.
	UnknownBusinessArea = "Unknown"

	// TotalSalesLabel names the all-business KPI card.
	TotalSalesLabel = "Total Sales"
)

// DeriveBusinessArea applies the business-area rule to upper-cased fields.
func DeriveBusinessArea(subType, business string) string {
	for _, s := range ManagedSubTypes {
		if subType == s {
			return ManagedBusinessArea
		}
	}
	return business
}
