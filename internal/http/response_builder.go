// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for JSON responses and the
// conversion of service views into their wire form. Amounts go out as
// floats in Cr; percentages as floats.

package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"salesdash/internal/aggregate"
	"salesdash/internal/core"
	"salesdash/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	data       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.data == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.data)
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Data(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnauthorizedError creates a 401 Unauthorized error response.
func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// noData is the body of every page when no dataset could be loaded.
type noData struct {
	HasData bool `json:"has_data"`
}

type filtersDTO struct {
	Region   string `json:"region"`
	Quarter  string `json:"quarter"`
	Business string `json:"business"`
}

type comparisonDTO struct {
	Label    string  `json:"label"`
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Growth   float64 `json:"growth_pct"`
}

type sliceDTO struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Pct   float64 `json:"pct"`
}

type kpiDTO struct {
	comparisonDTO
	Present bool `json:"present"`
}

type dashboardDTO struct {
	HasData              bool            `json:"has_data"`
	AsOf                 string          `json:"as_of"`
	CurrentYear          int             `json:"current_year"`
	PreviousYear         int             `json:"previous_year"`
	Filters              filtersDTO      `json:"filters"`
	KPIs                 []kpiDTO        `json:"kpis"`
	Monthly              []comparisonDTO `json:"monthly"`
	BusinessContribution []sliceDTO      `json:"business_contribution"`
	FileTypeContribution []sliceDTO      `json:"file_type_contribution"`
	Regions              []comparisonDTO `json:"regions"`
	BusinessAreas        []comparisonDTO `json:"business_areas"`
}

type achievementDTO struct {
	Label       string  `json:"label"`
	Actual      float64 `json:"actual"`
	Target      float64 `json:"target"`
	Achievement float64 `json:"achievement_pct"`
}

type achievementCardDTO struct {
	achievementDTO
	Present bool `json:"present"`
}

type fileTypePanelDTO struct {
	Business   string           `json:"business"`
	HasTargets bool             `json:"has_targets"`
	Rows       []achievementDTO `json:"rows"`
}

type targetDTO struct {
	HasData   bool                 `json:"has_data"`
	AsOf      string               `json:"as_of"`
	Year      int                  `json:"year"`
	Filters   filtersDTO           `json:"filters"`
	KPIs      []achievementCardDTO `json:"kpis"`
	Regions   []achievementDTO     `json:"regions"`
	Monthly   []achievementDTO     `json:"monthly"`
	FileTypes []fileTypePanelDTO   `json:"file_types"`
}

type dayDTO struct {
	Date  string  `json:"date"`
	Sale  float64 `json:"sale"`
	Files int     `json:"files"`
}

type drrDTO struct {
	HasData bool       `json:"has_data"`
	Filters filtersDTO `json:"filters"`
	From    string     `json:"from"`
	To      string     `json:"to"`
	Total   float64    `json:"total"`
	RunRate float64    `json:"run_rate"`
	Days    []dayDTO   `json:"days"`
}

type filterOptionsDTO struct {
	Regions    []string `json:"regions"`
	Quarters   []string `json:"quarters"`
	Businesses []string `json:"businesses"`
}

func amount(d decimal.Decimal) float64 {
	return core.Float(d)
}

func toFilters(f core.Filters) filtersDTO {
	return filtersDTO{
		Region:   orAll(f.Region),
		Quarter:  orAll(f.Quarter),
		Business: orAll(f.Business),
	}
}

func orAll(v string) string {
	if v == "" {
		return services.AllOption
	}
	return v
}

func toComparisons(rows []aggregate.ComparisonRow) []comparisonDTO {
	out := make([]comparisonDTO, len(rows))
	for i, r := range rows {
		out[i] = comparisonDTO{Label: r.Label, Current: amount(r.Current), Previous: amount(r.Previous), Growth: r.Growth}
	}
	return out
}

func toSlices(slices []aggregate.Slice) []sliceDTO {
	out := make([]sliceDTO, len(slices))
	for i, s := range slices {
		out[i] = sliceDTO{Label: s.Label, Value: amount(s.Value), Pct: s.Pct}
	}
	return out
}

func toAchievements(rows []services.AchievementRow) []achievementDTO {
	out := make([]achievementDTO, len(rows))
	for i, r := range rows {
		out[i] = achievementDTO{Label: r.Label, Actual: amount(r.Actual), Target: amount(r.Target), Achievement: r.Achievement}
	}
	return out
}

// DashboardResponse converts the year-over-year view.
func DashboardResponse(v services.DashboardView) any {
	if !v.HasData {
		return noData{}
	}
	dto := dashboardDTO{
		HasData:              true,
		AsOf:                 v.Window.AsOf(),
		CurrentYear:          v.Window.CurrentYear,
		PreviousYear:         v.Window.PreviousYear,
		Filters:              toFilters(v.Filters),
		Monthly:              toComparisons(v.Monthly),
		BusinessContribution: toSlices(v.BusinessContribution),
		FileTypeContribution: toSlices(v.FileTypeContribution),
		Regions:              toComparisons(v.Regions),
		BusinessAreas:        toComparisons(v.BusinessAreas),
	}
	for _, k := range v.KPIs {
		dto.KPIs = append(dto.KPIs, kpiDTO{
			comparisonDTO: comparisonDTO{Label: k.Label, Current: amount(k.Current), Previous: amount(k.Previous), Growth: k.Growth},
			Present:       k.Present,
		})
	}
	return dto
}

// TargetResponse converts the target-vs-achievement view.
func TargetResponse(v services.TargetView) any {
	if !v.HasData {
		return noData{}
	}
	dto := targetDTO{
		HasData: true,
		AsOf:    v.Window.AsOf(),
		Year:    v.Year,
		Filters: toFilters(v.Filters),
		Regions: toAchievements(v.Regions),
		Monthly: toAchievements(v.Monthly),
	}
	for _, k := range v.KPIs {
		dto.KPIs = append(dto.KPIs, achievementCardDTO{
			achievementDTO: toAchievements([]services.AchievementRow{k.AchievementRow})[0],
			Present:        k.Present,
		})
	}
	for _, p := range v.FileTypes {
		dto.FileTypes = append(dto.FileTypes, fileTypePanelDTO{
			Business:   p.Business,
			HasTargets: p.HasTargets,
			Rows:       toAchievements(p.Rows),
		})
	}
	return dto
}

// DRRResponse converts the daily run rate view.
func DRRResponse(v services.DRRView) any {
	if !v.HasData {
		return noData{}
	}
	dto := drrDTO{
		HasData: true,
		Filters: toFilters(v.Filters),
		From:    v.From.Format(time.DateOnly),
		To:      v.To.Format(time.DateOnly),
		Total:   amount(v.Total),
		RunRate: amount(v.RunRate),
		Days:    make([]dayDTO, len(v.Days)),
	}
	for i, d := range v.Days {
		dto.Days[i] = dayDTO{Date: d.Day.Format(time.DateOnly), Sale: amount(d.Sale), Files: d.Files}
	}
	return dto
}

// FilterOptionsResponse converts the sidebar choices.
func FilterOptionsResponse(o services.FilterOptions) any {
	return filterOptionsDTO{Regions: o.Regions, Quarters: o.Quarters, Businesses: o.Businesses}
}
