package applovin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBuilder(sortKey string) *requestBuilder {
	return &requestBuilder{
		apiKey:  "secret",
		baseURL: "https://r.applovin.com/",
		path:    "report",
		columns: []string{"day", "campaign", "cost"},
		sortKey: sortKey,
	}
}

func paramKeys(params []QueryParam) []string {
	keys := make([]string, 0, len(params))
	for _, p := range params {
		keys = append(keys, p.Key)
	}
	return keys
}

func TestRequestBuilder_FirstPage(t *testing.T) {
	rb := testBuilder("")
	window := TimeWindow{Start: date(2026, 8, 1), End: date(2026, 8, 15)}

	spec := rb.Build("", window)

	assert.Equal(t, "GET", spec.Method)
	assert.Equal(t, "application/json", spec.Headers["Accept"])
	assert.Equal(t, []string{"api_key", "format", "columns", "start", "end"}, paramKeys(spec.Params))

	values := map[string]string{}
	for _, p := range spec.Params {
		values[p.Key] = p.Value
	}
	assert.Equal(t, "secret", values["api_key"])
	assert.Equal(t, "json", values["format"])
	assert.Equal(t, "day,campaign,cost", values["columns"])
	assert.Equal(t, "2026-08-01", values["start"])
	assert.Equal(t, "2026-08-15", values["end"])
}

func TestRequestBuilder_CursorAddsPageParam(t *testing.T) {
	rb := testBuilder("")
	window := TimeWindow{Start: date(2026, 8, 1), End: date(2026, 8, 15)}

	spec := rb.Build("3", window)
	assert.Equal(t, []string{"api_key", "format", "columns", "page", "start", "end"}, paramKeys(spec.Params))
	assert.Contains(t, spec.URL, "page=3")
}

func TestRequestBuilder_SortKeyAddsOrdering(t *testing.T) {
	rb := testBuilder("day")
	window := TimeWindow{Start: date(2026, 8, 1), End: date(2026, 8, 2)}

	spec := rb.Build("", window)
	assert.Equal(t, []string{"api_key", "format", "columns", "sort", "order_by", "start", "end"}, paramKeys(spec.Params))
	assert.Contains(t, spec.URL, "sort=asc")
	assert.Contains(t, spec.URL, "order_by=day")
}

func TestRequestBuilder_OpenEndedWindowSendsNow(t *testing.T) {
	rb := testBuilder("")
	window := TimeWindow{Start: date(2026, 8, 1), End: date(2026, 8, 29), OpenEnded: true}

	spec := rb.Build("", window)

	var end string
	for _, p := range spec.Params {
		if p.Key == "end" {
			end = p.Value
		}
	}
	assert.Equal(t, "now", end)
	assert.Contains(t, spec.URL, "end=now")
}

func TestRequestBuilder_Deterministic(t *testing.T) {
	rb := testBuilder("day")
	window := TimeWindow{Start: date(2026, 8, 1), End: date(2026, 8, 2)}

	first := rb.Build("2", window)
	second := rb.Build("2", window)
	require.Equal(t, first.URL, second.URL, "identical inputs must produce the identical URL")
}
