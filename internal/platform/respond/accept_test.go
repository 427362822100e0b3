package respond

import "testing"

func TestSelectFormat(t *testing.T) {
	tests := []struct {
		accept string
		cbor   bool
	}{
		{"", false},
		{"*/*", false},
		{"application/*", false},
		{"application/json", false},
		{"application/cbor", true},
		{"application/cbor;q=1.0", true},
		{"application/json, application/cbor", false},
		{"application/json;q=0.9, application/cbor;q=1.0", true},
		{"text/html", false},
		{"image/png, text/plain", false},
		{"application/problem+cbor", true},
		{"application/problem+json", false},
		{"application/problem+cbor;q=1.0, application/problem+json;q=0.5", true},
		{"application/problem+cbor;q=0.5, application/problem+json;q=1.0", false},
		{"application/cbor, application/problem+cbor", true},
		{"application/cbor;q=0, application/json", false},
		{"application/json;q=0, application/cbor;q=1.0", true},
		{"application/cbor;q=0.5, application/json;q=0.9", false},
		{"application/cbor;q=0.1", true},
		{"*/*;q=0.1, application/cbor;q=1.0", true},
		{"*/*;q=0.1, application/json;q=1.0", false},
		{"application/problem+cbor;q=0.1, application/json;q=1.0", false},
		{"application/problem+json;q=0.1, application/cbor;q=1.0", true},
		{"application/json;q=0.8, application/problem+cbor;q=0.8", true},
		{"application/cbor;q=0.8, application/problem+json;q=0.8", false},
		{"application/*+cbor", true},
		{"application/*+json", false},
		{"application/cbor;q=invalid", true},
		{"  application/cbor  ;  q=1.0  ", true},
		{"Application/CBOR", true},
		{"application/json;q=0, application/cbor;q=0", false},
		{"*/*;q=0", false},
	}

	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			if got := selectFormat(tt.accept); got != tt.cbor {
				t.Fatalf("selectFormat(%q) = %v, want %v", tt.accept, got, tt.cbor)
			}
		})
	}
}

func TestParseAccept(t *testing.T) {
	ranges := parseAccept("text")
	if len(ranges) != 1 || ranges[0].typ != "text" || ranges[0].subtype != "*" {
		t.Fatalf("expected text/*, got %+v", ranges)
	}

	if ranges := parseAccept("application/json, , text/html"); len(ranges) != 2 {
		t.Fatalf("expected empty part to be skipped, got %+v", ranges)
	}

	for _, header := range []string{"application/json;q=2.0", "application/json;q=-0.5", "application/json;q=x"} {
		ranges := parseAccept(header)
		if len(ranges) != 1 || ranges[0].q != 1.0 {
			t.Fatalf("%q: expected q=1.0, got %+v", header, ranges)
		}
	}

	ranges = parseAccept("application/json;q=0.5;q=0.9")
	if len(ranges) != 1 || ranges[0].q != 0.9 {
		t.Fatalf("expected last q value to win, got %+v", ranges)
	}
}
