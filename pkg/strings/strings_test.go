package strings

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
)

func TestBytesToString(t *testing.T) {
	b := []byte("hello world")
	if s := BytesToString(b); s != "hello world" {
		t.Errorf("expected 'hello world', got '%s'", s)
	}

	if empty := BytesToString([]byte{}); empty != "" {
		t.Errorf("expected empty string, got '%s'", empty)
	}
}

func TestStringToBytes(t *testing.T) {
	b := StringToBytes("hello world")
	if string(b) != "hello world" {
		t.Errorf("expected 'hello world', got '%s'", string(b))
	}
}

func TestBuilder(t *testing.T) {
	builder := NewBuilder(32)

	builder.WriteString("hello")
	builder.WriteByte(' ')
	builder.WriteString("world")

	if result := builder.String(); result != "hello world" {
		t.Errorf("expected 'hello world', got '%s'", result)
	}
	if builder.Len() != 11 {
		t.Errorf("expected length 11, got %d", builder.Len())
	}

	builder.Reset()
	if builder.Len() != 0 {
		t.Errorf("expected length 0 after reset, got %d", builder.Len())
	}
}

func TestTrimSpace(t *testing.T) {
	cases := map[string]string{
		"  hello  ": "hello",
		"hello":     "hello",
		"\t a \n":   "a",
		"   ":       "",
		"":          "",
	}
	for in, want := range cases {
		if got := TrimSpace(in); got != want {
			t.Errorf("TrimSpace(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplit(t *testing.T) {
	parts := Split("day,campaign,cost", ",")
	if len(parts) != 3 || parts[0] != "day" || parts[2] != "cost" {
		t.Errorf("unexpected split result: %v", parts)
	}

	single := Split("day", ",")
	if len(single) != 1 || single[0] != "day" {
		t.Errorf("unexpected split result: %v", single)
	}
}

func TestJoinPooled(t *testing.T) {
	got := JoinPooled([]string{"day", "campaign", "cost"}, ",")
	if got != "day,campaign,cost" {
		t.Errorf("expected 'day,campaign,cost', got '%s'", got)
	}

	if JoinPooled(nil, ",") != "" {
		t.Error("expected empty string for nil input")
	}
}

func TestURLBuilder(t *testing.T) {
	ub := NewURLBuilder("https://r.applovin.com")
	defer ub.Close()

	url := ub.AddPath("report").
		AddParam("format", "json").
		AddParam("start", "2026-08-01").
		String()

	want := "https://r.applovin.com/report?format=json&start=2026-08-01"
	if url != want {
		t.Errorf("expected %q, got %q", want, url)
	}
}

func TestURLBuilderEscaping(t *testing.T) {
	ub := NewURLBuilder("https://example.com")
	defer ub.Close()

	url := ub.AddPath("report").AddParam("q", "a b&c").String()
	if !Contains(url, "q=a%20b%26c") && !Contains(url, "q=a+b%26c") {
		t.Errorf("query value was not escaped: %q", url)
	}
}

func TestCSVBuilder(t *testing.T) {
	cb := NewCSVBuilder(2, 3)
	defer cb.Close()

	cb.WriteHeader([]string{"day", "campaign", "cost"})
	cb.WriteRow([]string{"2026-08-01", "summer, sale", "12.30"})

	got := cb.String()
	want := "day,campaign,cost\n2026-08-01,\"summer, sale\",12.30\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestCSVBuilderHeaderQuoting(t *testing.T) {
	cb := NewCSVBuilder(1, 2)
	defer cb.Close()

	cb.WriteHeader([]string{"day, detailed", "cost"})
	want := "\"day, detailed\",cost\n"
	if got := cb.String(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestCSVBuilderCustomDelimiter(t *testing.T) {
	cb := NewCSVBuilder(1, 3)
	defer cb.Close()
	cb.SetDelimiter(';')

	// Quoting follows the configured delimiter, commas pass through bare.
	cb.WriteRow([]string{"a;b", "plain, text", "c"})
	want := "\"a;b\";plain, text;c\n"
	if got := cb.String(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestCSVBuilderWriteTo(t *testing.T) {
	cb := NewCSVBuilder(2, 2)
	defer cb.Close()

	var sink bytes.Buffer
	cb.WriteRow([]string{"r1", "x"})
	if _, err := cb.WriteTo(&sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cb.WriteRow([]string{"r2", "y"})
	if _, err := cb.WriteTo(&sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "r1,x\nr2,y\n"
	if got := sink.String(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestValueToString(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{42, "42"},
		{int64(9000), "9000"},
		{3.14, "3.14"},
		{true, "true"},
		{[]byte("raw"), "raw"},
	}
	for _, c := range cases {
		if got := ValueToString(c.in); got != c.want {
			t.Errorf("ValueToString(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestValueToStringKeepsDecimalText(t *testing.T) {
	// String() canonicalizes "12.30" to "12.3"; rendering must restore the
	// scale held in the exponent.
	d := decimal.RequireFromString("12.30")
	if got := ValueToString(d); got != "12.30" {
		t.Errorf("expected '12.30', got '%s'", got)
	}

	if got := ValueToString(decimal.RequireFromString("0.0500")); got != "0.0500" {
		t.Errorf("expected '0.0500', got '%s'", got)
	}

	// Whole numbers have a non-negative exponent and render canonically.
	if got := ValueToString(decimal.NewFromInt(7)); got != "7" {
		t.Errorf("expected '7', got '%s'", got)
	}
}

func TestSprintf(t *testing.T) {
	got := Sprintf("%d Client Error: %s", 404, "Not Found")
	if got != "404 Client Error: Not Found" {
		t.Errorf("unexpected result: %q", got)
	}
}

func TestBuilderPool(t *testing.T) {
	builder := GetBuilder(Small)
	builder.WriteString("pooled")
	if builder.String() != "pooled" {
		t.Error("builder did not record writes")
	}
	PutBuilder(builder, Small)

	again := GetBuilder(Small)
	defer PutBuilder(again, Small)
	if again.Len() != 0 {
		t.Error("pooled builder was not reset")
	}
}
