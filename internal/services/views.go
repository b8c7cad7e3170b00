package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"salesdash/internal/aggregate"
	"salesdash/internal/core"
	"salesdash/internal/targets"
)

// KPICard compares one business line, or the total, year over year.
type KPICard struct {
	Label    string
	Current  decimal.Decimal
	Previous decimal.Decimal
	Growth   float64
	// Present is false when the business has no rows under the active filters.
	Present bool
}

// DashboardView is the year-over-year page.
type DashboardView struct {
	HasData              bool
	Window               core.Window
	Filters              core.Filters
	KPIs                 []KPICard
	Monthly              []aggregate.ComparisonRow
	BusinessContribution []aggregate.Slice
	FileTypeContribution []aggregate.Slice
	Regions              []aggregate.ComparisonRow
	BusinessAreas        []aggregate.ComparisonRow
}

// Dashboard builds the year-over-year page for the given filters.
func (s *DashboardService) Dashboard(ctx context.Context, f core.Filters) DashboardView {
	ds := s.Dataset(ctx)
	view := DashboardView{Window: ds.Window, Filters: f}
	if ds.Empty() {
		return view
	}
	view.HasData = true

	filtered := ds.Apply(f)
	cur, prev := filtered.Current().Records, filtered.Previous().Records
	present := stringSet(aggregate.Distinct(filtered.Records, aggregate.ByBusiness))

	curTotal, prevTotal := aggregate.Total(cur, nil), aggregate.Total(prev, nil)
	view.KPIs = append(view.KPIs, KPICard{
		Label:    core.TotalSalesLabel,
		Current:  curTotal,
		Previous: prevTotal,
		Growth:   aggregate.GrowthPct(curTotal, prevTotal),
		Present:  true,
	})
	curBiz, prevBiz := aggregate.SumBy(cur, aggregate.ByBusiness, nil), aggregate.SumBy(prev, aggregate.ByBusiness, nil)
	for _, b := range core.KPIBusinesses {
		card := KPICard{Label: b, Current: decimal.Zero, Previous: decimal.Zero, Present: present[b]}
		if card.Present {
			card.Current, card.Previous = curBiz[b], prevBiz[b]
			card.Growth = aggregate.GrowthPct(card.Current, card.Previous)
		}
		view.KPIs = append(view.KPIs, card)
	}

	view.Monthly = aggregate.Compare(
		aggregate.SumBy(cur, aggregate.ByMonth, nil),
		aggregate.SumBy(prev, aggregate.ByMonth, nil),
		core.Months)

	view.BusinessContribution = aggregate.Share(curBiz, core.KPIBusinesses)
	view.FileTypeContribution = aggregate.Share(aggregate.SumBy(cur, aggregate.ByFileType, nil), core.ContributionFileTypes)

	curReg, prevReg := aggregate.SumBy(cur, aggregate.BySubRegion, nil), aggregate.SumBy(prev, aggregate.BySubRegion, nil)
	view.Regions = aggregate.Compare(curReg, prevReg, aggregate.UnionAxis(curReg, prevReg))

	curArea, prevArea := aggregate.SumBy(cur, aggregate.ByBusinessArea, nil), aggregate.SumBy(prev, aggregate.ByBusinessArea, nil)
	view.BusinessAreas = aggregate.Compare(curArea, prevArea, aggregate.UnionAxis(curArea, prevArea))

	return view
}

// AchievementRow compares actual sales with a target.
type AchievementRow struct {
	Label       string
	Actual      decimal.Decimal
	Target      decimal.Decimal
	Achievement float64
}

// FileTypePanel is the FIT/GIT breakdown of one business line.
type FileTypePanel struct {
	Business   string
	Rows       []AchievementRow
	HasTargets bool
}

// TargetView is the target-vs-achievement page for the current year.
type TargetView struct {
	HasData   bool
	Window    core.Window
	Filters   core.Filters
	Year      int
	KPIs      []AchievementCard
	Regions   []AchievementRow
	Monthly   []AchievementRow
	FileTypes []FileTypePanel
}

// AchievementCard is a KPI card of the target page.
type AchievementCard struct {
	AchievementRow
	Present bool
}

// TargetVsAchievement joins current-year actuals with the target table.
func (s *DashboardService) TargetVsAchievement(ctx context.Context, f core.Filters) TargetView {
	ds := s.Dataset(ctx)
	view := TargetView{Window: ds.Window, Filters: f, Year: ds.Window.CurrentYear}
	tt := s.Targets(ctx)
	if ds.Empty() || tt.Empty() {
		return view
	}
	view.HasData = true

	actual := ds.Apply(f).Current().Records
	present := stringSet(aggregate.Distinct(actual, aggregate.ByBusiness))
	barea := s.targets.Match(ctx, tt, targets.CategoryBArea)
	region := s.targets.Match(ctx, tt, targets.CategoryRegion)
	fileType := s.targets.Match(ctx, tt, targets.CategoryFileType)

	total := aggregate.Total(actual, nil)
	totalTarget := targets.Total(barea)
	view.KPIs = append(view.KPIs, AchievementCard{
		AchievementRow: achievement(core.TotalSalesLabel, total, totalTarget),
		Present:        true,
	})
	byBiz := aggregate.SumBy(actual, aggregate.ByBusiness, nil)
	for _, b := range core.KPIBusinesses {
		target := targets.For(barea, b, "")
		card := AchievementCard{AchievementRow: AchievementRow{Label: b, Actual: decimal.Zero, Target: target}, Present: present[b]}
		if card.Present {
			card.AchievementRow = achievement(b, byBiz[b], target)
		}
		view.KPIs = append(view.KPIs, card)
	}

	byRegion := aggregate.SumBy(actual, aggregate.BySubRegion, nil)
	view.Regions = achievementRows(byRegion, targets.Sums(region, targets.ByLabel), aggregate.UnionAxis(byRegion))

	view.Monthly = achievementRows(aggregate.SumBy(actual, aggregate.ByMonth, nil), targets.Sums(barea, targets.ByMonth), core.Months)

	for _, b := range core.FileTypeBusinesses {
		zone := targets.InZone(fileType, b)
		biz := aggregate.SumBy(actual, aggregate.ByFileType, func(r core.Record) bool { return r.Business == b })
		view.FileTypes = append(view.FileTypes, FileTypePanel{
			Business:   b,
			Rows:       achievementRows(biz, targets.Sums(zone, targets.ByFileType), core.TargetFileTypes),
			HasTargets: len(zone) > 0,
		})
	}
	return view
}

// achievementRows lays actual and target sums along axis. Target keys
// are upper-cased, so the lookup is case-insensitive.
func achievementRows(actual aggregate.Sums, target map[string]decimal.Decimal, axis []string) []AchievementRow {
	rows := make([]AchievementRow, len(axis))
	for i, label := range axis {
		rows[i] = achievement(label, actual[label], target[strings.ToUpper(label)])
	}
	return rows
}

func achievement(label string, actual, target decimal.Decimal) AchievementRow {
	return AchievementRow{
		Label:       label,
		Actual:      actual,
		Target:      target,
		Achievement: aggregate.AchievementPct(actual, target),
	}
}

// FilterOptions lists the sidebar choices, "All" first.
type FilterOptions struct {
	Regions    []string
	Quarters   []string
	Businesses []string
}

// AllOption selects every value of a filter.
const AllOption = "All"

// FilterOptions returns the distinct filter values of the loaded dataset.
func (s *DashboardService) FilterOptions(ctx context.Context) FilterOptions {
	ds := s.Dataset(ctx)
	withAll := func(key aggregate.KeyFunc) []string {
		return append([]string{AllOption}, aggregate.Distinct(ds.Records, key)...)
	}
	return FilterOptions{
		Regions:    withAll(aggregate.ByRegion),
		Quarters:   withAll(func(r core.Record) string { return r.Quarter }),
		Businesses: withAll(aggregate.ByBusiness),
	}
}

func stringSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
