package applovin

import (
	stringpool "github.com/ajitpratap0/nova/pkg/strings"
)

// QueryParam is one key/value query parameter. Order matters: the server
// caches on the literal URL, so parameter assembly must be deterministic.
type QueryParam struct {
	Key   string
	Value string
}

// RequestSpec is a fully-parameterized report request. Immutable once built;
// the transport layer consumes it as-is.
type RequestSpec struct {
	Method  string
	URL     string
	Params  []QueryParam
	Headers map[string]string
}

// requestBuilder assembles report requests for one configured stream.
type requestBuilder struct {
	apiKey  string
	baseURL string
	path    string
	columns []string
	sortKey string
}

// Build produces the RequestSpec for a given pagination cursor and window.
// Parameters are attached in fixed precedence: credential and output format,
// column selection, pagination cursor, ordering, then date bounds. An
// open-ended window sends the literal "now" as its end so the server extends
// the range to the current time.
func (rb *requestBuilder) Build(cursor string, window TimeWindow) RequestSpec {
	params := make([]QueryParam, 0, 7)
	params = append(params,
		QueryParam{"api_key", rb.apiKey},
		QueryParam{"format", "json"},
		QueryParam{"columns", stringpool.JoinPooled(rb.columns, ",")},
	)

	if cursor != "" {
		params = append(params, QueryParam{"page", cursor})
	}

	if rb.sortKey != "" {
		params = append(params,
			QueryParam{"sort", "asc"},
			QueryParam{"order_by", rb.sortKey},
		)
	}

	params = append(params, QueryParam{"start", window.StartDate()})
	if window.OpenEnded {
		params = append(params, QueryParam{"end", "now"})
	} else {
		params = append(params, QueryParam{"end", window.EndDate()})
	}

	// AddPath inserts the separator itself, so a configured trailing
	// slash must not double it.
	base := rb.baseURL
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}

	ub := stringpool.NewURLBuilder(base)
	defer ub.Close()
	ub.AddPath(rb.path)
	for _, p := range params {
		ub.AddParam(p.Key, p.Value)
	}

	return RequestSpec{
		Method: "GET",
		URL:    ub.String(),
		Params: params,
		Headers: map[string]string{
			"Accept": "application/json",
		},
	}
}
