//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseRequestID tests that parsing never panics on arbitrary input
// and always returns either a valid ID or an error.
func FuzzParseRequestID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseRequestID(input)
		if err != nil {
			return
		}
		if id.IsNil() {
			t.Error("accepted nil request id")
		}
		roundTrip, err := ParseRequestID(id.String())
		if err != nil {
			t.Errorf("valid ID failed round-trip: %v", err)
		}
		if roundTrip != id {
			t.Error("round-trip changed ID value")
		}
	})
}

// FuzzParseVendorID checks accepted slugs are printable ASCII and stable.
func FuzzParseVendorID(f *testing.F) {
	f.Add("vnd_1")
	f.Add("")
	f.Add("héllo")
	f.Add("a/b")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseVendorID(input)
		if err != nil {
			return
		}
		if !utf8.ValidString(string(id)) {
			t.Errorf("accepted invalid UTF-8: %q", id)
		}
		for _, r := range string(id) {
			if r > 127 {
				t.Errorf("accepted non-ASCII rune %q", r)
			}
		}
		again, err := ParseVendorID(string(id))
		if err != nil || again != id {
			t.Errorf("slug not stable: %q", id)
		}
	})
}
