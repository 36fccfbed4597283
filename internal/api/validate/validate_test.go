package validate

import (
	"strings"
	"testing"
)

func TestCreateLicense(t *testing.T) {
	long := strings.Repeat("x", maxDescriptionLen+1)
	cases := []struct {
		name                    string
		ptr, origin, terms, sig string
		desc                    *string
		wantErr                 string
	}{
		{"ok", "p", "o", "t", "s", nil, ""},
		{"missing ptr", "", "o", "t", "s", nil, "ptr is required"},
		{"blank origin", "p", "  ", "t", "s", nil, "origin is required"},
		{"missing signature", "p", "o", "t", "", nil, "signature is required"},
		{"missing terms", "p", "o", "", "s", nil, "terms is required"},
		{"long description", "p", "o", "t", "s", &long, "description exceeds"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CreateLicense(tc.ptr, tc.origin, tc.terms, tc.sig, tc.desc)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("want error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateTitleIgnoresTerms(t *testing.T) {
	if err := CreateTitle("p", "o", "s", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
