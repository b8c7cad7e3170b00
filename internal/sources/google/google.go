package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"salesdash/internal/core"
	"salesdash/internal/log"
	ports "salesdash/internal/sources"
)

// Ensure interface conformance
var _ ports.TableReader = (*Client)(nil)

// Client reads one A1 range of a spreadsheet as a table.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	rng           string
	logger        *log.Logger
}

// Credentials selects the service account used to reach the Sheets API.
// JSON takes precedence over File; when both are empty
// GOOGLE_APPLICATION_CREDENTIALS is consulted.
type Credentials struct {
	JSON string
	File string
}

// New creates a Sheets reader for spreadsheetID!rng.
func New(ctx context.Context, spreadsheetID, rng string, creds Credentials, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSources)
	svc, err := newSheetsService(ctx, creds, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, rng, logger), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, rng string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, rng: rng, logger: logger}
}

// newSheetsService initializes a read-only Sheets service using Service Account credentials.
func newSheetsService(ctx context.Context, creds Credentials, logger *log.Logger) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(creds.JSON)
	serviceAccountFile := strings.TrimSpace(creds.File)

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		logger.DebugContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ReadTable fetches the range with unformatted values, so dates arrive
// as serial numbers like they do from xlsx workbooks.
func (c *Client) ReadTable(ctx context.Context) (core.Table, error) {
	if c.svc == nil {
		return core.Table{}, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return core.Table{}, fmt.Errorf("read %s: %w", c.rng, core.ErrNotFound)
		}
		return core.Table{}, fmt.Errorf("read %s: %w", c.rng, err)
	}

	values := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		values[i] = toStrings(row)
	}
	c.logger.DebugContext(ctx, "Sheet range read",
		log.FieldLocation, c.rng,
		log.FieldRows, len(values))
	return core.NewTable(c.spreadsheetID+"!"+c.rng, values), nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case nil:
			out[i] = ""
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}
