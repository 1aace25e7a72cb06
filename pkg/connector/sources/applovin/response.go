package applovin

import (
	"bytes"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nova/pkg/errors"
	jsonpool "github.com/ajitpratap0/nova/pkg/json"
	stringpool "github.com/ajitpratap0/nova/pkg/strings"
)

const errorSnippetLimit = 500

// Outcome labels used for the request counter metric.
const (
	outcomeSuccess   = "success"
	outcomeFatal     = "fatal"
	outcomeRetriable = "retriable"
)

// outcomeLabel maps an HTTP status to its outcome class.
func outcomeLabel(status int) string {
	switch {
	case status >= 200 && status < 300:
		return outcomeSuccess
	case status >= 400 && status < 500:
		return outcomeFatal
	default:
		return outcomeRetriable
	}
}

// classify judges an HTTP response. 2xx is success (nil). 4xx is fatal: the
// request is malformed or unauthorized and resending it cannot succeed, so
// the run must stop immediately instead of burning retry budget. 5xx is
// retriable and surfaced to the transport retry policy.
func classify(status int, body []byte, url string, logger *zap.Logger) error {
	switch {
	case status >= 200 && status < 300:
		return nil

	case status >= 400 && status < 500:
		snippet := string(body)
		if len(snippet) > errorSnippetLimit {
			snippet = snippet[:errorSnippetLimit]
		}

		logger.Error("report API rejected request",
			zap.Int("status", status),
			zap.String("url", url),
			zap.String("body", snippet))

		// Best-effort decode of a structured error detail. Absence of a
		// body and an undecodable body are logged differently but neither
		// fails the classification itself.
		if len(bytes.TrimSpace(body)) == 0 {
			logger.Debug("error response had no body")
		} else {
			var detail map[string]interface{}
			if err := json.Unmarshal(body, &detail); err != nil {
				logger.Debug("error response body is not JSON", zap.Error(err))
			} else {
				logger.Error("API error details", zap.Any("detail", detail))
			}
		}

		errType := errors.ErrorTypeValidation
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			errType = errors.ErrorTypeAuthentication
		}

		return errors.New(errType,
			stringpool.Sprintf("%d Client Error: %s for url: %s", status, http.StatusText(status), url)).
			WithDetail("status", status).
			WithDetail("body", snippet)

	default:
		errType := errors.ErrorTypeConnection
		if status == http.StatusGatewayTimeout {
			errType = errors.ErrorTypeTimeout
		}

		return errors.New(errType,
			stringpool.Sprintf("%d Server Error: %s for url: %s", status, http.StatusText(status), url)).
			WithDetail("status", status)
	}
}

// reportPage is one decoded page of report rows plus the pagination token
// echoed back on the next request. An empty NextPage means the final page.
type reportPage struct {
	Records  []map[string]interface{}
	NextPage string
}

// extractPage decodes a successful response body. Rows live under "results",
// the continuation token under "next_page". A body without those fields is an
// empty page, not an error. Numeric fields arrive as json.Number; monetary
// and ratio columns are converted to exact decimals. The source scale is
// retained in the decimal's exponent so file sinks can render "12.30" with
// its trailing zero even though the canonical string form is "12.3".
func extractPage(body []byte, logger *zap.Logger) *reportPage {
	var payload struct {
		Results  []map[string]interface{} `json:"results"`
		NextPage interface{}              `json:"next_page"`
	}

	dec := jsonpool.GetDecoder(bytes.NewReader(body))
	defer jsonpool.PutDecoder(dec)

	if err := dec.Decode(&payload); err != nil {
		logger.Warn("failed to decode report payload, treating as empty page", zap.Error(err))
		return &reportPage{}
	}

	for _, record := range payload.Results {
		convertDecimals(record, logger)
	}

	return &reportPage{
		Records:  payload.Results,
		NextPage: normalizeToken(payload.NextPage),
	}
}

// convertDecimals replaces json.Number values of monetary and ratio columns
// with decimal.Decimal, preserving the exact value and its scale.
func convertDecimals(record map[string]interface{}, logger *zap.Logger) {
	for column := range decimalColumns {
		raw, ok := record[column]
		if !ok || raw == nil {
			continue
		}

		var text string
		switch v := raw.(type) {
		case json.Number:
			text = v.String()
		case string:
			text = v
		default:
			continue
		}

		d, err := decimal.NewFromString(text)
		if err != nil {
			logger.Warn("non-numeric value in decimal column",
				zap.String("column", column),
				zap.String("value", text))
			continue
		}
		record[column] = d
	}
}

// normalizeToken coerces the next-page token to a string. The API returns
// integers or strings interchangeably; absence means no more pages.
func normalizeToken(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return stringpool.Sprintf("%v", v)
	}
}
