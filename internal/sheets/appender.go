// Package sheets appends call-log rows to a Google Sheet via the
// spreadsheets.values.append REST endpoint. The sheet is treated as an
// opaque append-only sink; the service holds a static bearer token.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/events"
)

// Sink is the append-only durable log the gate writes to.
type Sink interface {
	Append(ctx context.Context, rec events.LogRecord) error
}

type Appender struct {
	spreadsheetID     string
	sheetName         string
	token             string
	includeTranscript bool
	client            *http.Client
	apiURL            string
	limiter           *rate.Limiter
}

func NewAppender(spreadsheetID, sheetName, token string, includeTranscript bool) *Appender {
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	return &Appender{
		spreadsheetID:     spreadsheetID,
		sheetName:         sheetName,
		token:             token,
		includeTranscript: includeTranscript,
		client:            &http.Client{Timeout: 15 * time.Second},
		apiURL:            "https://sheets.googleapis.com/v4/spreadsheets",
		// Sheets API allows 60 write requests per minute per user.
		limiter: rate.NewLimiter(rate.Limit(1), 5),
	}
}

// Append writes one row in the fixed column order. It returns a definitive
// error on failure so the caller can avoid marking the call as logged.
func (a *Appender) Append(ctx context.Context, rec events.LogRecord) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	row := rec.Row(a.includeTranscript)
	body, err := json.Marshal(map[string]any{
		"values": [][]string{row},
	})
	if err != nil {
		return fmt.Errorf("marshal sheet row: %w", err)
	}

	url := fmt.Sprintf("%s/%s/values/%s:append?valueInputOption=RAW&insertDataOption=INSERT_ROWS",
		a.apiURL, a.spreadsheetID, a.sheetName)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("sheets append: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sheets returned %d", resp.StatusCode)
	}

	slog.Info("row appended to sheet", "call_id", rec.CallID, "columns", len(row))
	return nil
}
