package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"financeiro/internal/config"
	"financeiro/internal/core"
	ports "financeiro/internal/sheets"
)

const (
	defaultCacheDuration = 2 * time.Minute
	lastColumn           = "J"
)

var _ ports.EntryMirror = (*Client)(nil)

// Client mirrors entries into a spreadsheet through the Sheets API.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string

	// writeMu serializes row writes so two appends never pick the same row.
	writeMu sync.Mutex

	// Row index cache: entry id to 1-based row number, per sheet.
	mu                 sync.Mutex
	rowIndex           map[string]map[core.EntryID]int
	cachedRowCount     map[string]int
	cacheExpiresAt     map[string]time.Time
	cacheValidDuration time.Duration
}

// NewFromConfig creates a client authenticated with a service account
// when one is configured, or with the OAuth client and token otherwise.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	if strings.TrimSpace(cfg.GoogleSpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	opts, err := authOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return New(svc, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName), nil
}

// New wraps an existing service.
func New(svc *gsheet.Service, spreadsheetID, sheetBase string) *Client {
	if sheetBase == "" {
		sheetBase = "Lancamentos"
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetBase:          sheetBase,
		rowIndex:           map[string]map[core.EntryID]int{},
		cachedRowCount:     map[string]int{},
		cacheExpiresAt:     map[string]time.Time{},
		cacheValidDuration: defaultCacheDuration,
	}
}

func authOptions(ctx context.Context, cfg *config.Config) ([]goption.ClientOption, error) {
	saJSON, err := inlineOrFile(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account: %w", err)
	}
	if len(saJSON) > 0 {
		slog.InfoContext(ctx, "Using service account credentials for Google Sheets")
		return []goption.ClientOption{
			goption.WithCredentialsJSON(saJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, nil
	}

	clientJSON, err := inlineOrFile(cfg.GoogleOAuthClientJSON, cfg.GoogleOAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	if len(clientJSON) == 0 {
		return nil, errors.New("missing Google credentials (service account or OAuth client)")
	}
	oauthCfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}

	tokenJSON, err := inlineOrFile(cfg.GoogleOAuthTokenJSON, cfg.GoogleOAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	if len(tokenJSON) == 0 {
		return nil, errors.New("missing OAuth token (run oauth-init first)")
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	slog.InfoContext(ctx, "Using OAuth token for Google Sheets")
	base := context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	return []goption.ClientOption{goption.WithHTTPClient(oauthCfg.Client(base, &tok))}, nil
}

func inlineOrFile(inline, path string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

// newHTTPClientWithPooling is the transport under the OAuth client.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// Upsert updates the entry's row in place or appends it after the last row.
func (c *Client) Upsert(ctx context.Context, ws core.Workspace, e core.Entry) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if e.ID == "" {
		return "", errors.New("upsert row: missing entry id")
	}
	sheet := ports.SheetName(c.sheetBase, ws)
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	row, found, err := c.findRow(ctx, sheet, e.ID)
	if err != nil {
		return "", err
	}
	if !found {
		row = c.nextRow(sheet)
		if row == 1 {
			if err := c.writeHeader(ctx, sheet); err != nil {
				return "", err
			}
			row = 2
		}
	}

	rng := fmt.Sprintf("%s!A%d:%s%d", sheet, row, lastColumn, row)
	vr := &gsheet.ValueRange{Values: [][]any{ports.Row(e)}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		c.InvalidateRowCache()
		return "", fmt.Errorf("update %s: %w", rng, err)
	}

	c.remember(sheet, e.ID, row)
	return rng, nil
}

func (c *Client) writeHeader(ctx context.Context, sheet string) error {
	header := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		header[i] = h
	}
	rng := fmt.Sprintf("%s!A1:%s1", sheet, lastColumn)
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header %s: %w", rng, err)
	}
	c.mu.Lock()
	c.cachedRowCount[sheet] = max(c.cachedRowCount[sheet], 1)
	c.mu.Unlock()
	return nil
}

// Remove clears the row of id. The row stays in place so other cached
// row numbers remain valid.
func (c *Client) Remove(ctx context.Context, ws core.Workspace, id core.EntryID) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	sheet := ports.SheetName(c.sheetBase, ws)
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	row, found, err := c.findRow(ctx, sheet, id)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:%s%d", sheet, row, lastColumn, row)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		c.InvalidateRowCache()
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	c.mu.Lock()
	delete(c.rowIndex[sheet], id)
	c.mu.Unlock()
	return nil
}

// InvalidateRowCache forces the next call to re-read column A.
func (c *Client) InvalidateRowCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.cacheExpiresAt)
}

func (c *Client) findRow(ctx context.Context, sheet string, id core.EntryID) (int, bool, error) {
	if err := c.loadIndex(ctx, sheet); err != nil {
		return 0, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	row, ok := c.rowIndex[sheet][id]
	return row, ok, nil
}

func (c *Client) nextRow(sheet string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cachedRowCount[sheet] + 1
}

func (c *Client) remember(sheet string, id core.EntryID, row int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rowIndex[sheet] == nil {
		c.rowIndex[sheet] = map[core.EntryID]int{}
	}
	c.rowIndex[sheet][id] = row
	if row > c.cachedRowCount[sheet] {
		c.cachedRowCount[sheet] = row
	}
}

// loadIndex reads column A when the cached index of sheet has expired.
func (c *Client) loadIndex(ctx context.Context, sheet string) error {
	c.mu.Lock()
	valid := time.Now().Before(c.cacheExpiresAt[sheet])
	c.mu.Unlock()
	if valid {
		return nil
	}

	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}

	index := make(map[core.EntryID]int, len(resp.Values))
	for i, r := range resp.Values {
		if len(r) == 0 {
			continue
		}
		id := strings.TrimSpace(fmt.Sprint(r[0]))
		if id == "" || id == ports.Header[0] {
			continue
		}
		index[core.EntryID(id)] = i + 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rowIndex[sheet] = index
	c.cachedRowCount[sheet] = len(resp.Values)
	c.cacheExpiresAt[sheet] = time.Now().Add(c.cacheValidDuration)
	return nil
}
