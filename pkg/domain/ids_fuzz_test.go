//go:build go1.18

package domain

import "testing"

// FuzzParseAddress checks that parsing never panics and that every accepted
// address round-trips through its canonical form.
func FuzzParseAddress(f *testing.F) {
	f.Add("")
	f.Add("0x0000000000000000000000000000000000000000")
	f.Add("0xABCDEF0123456789abcdef0123456789ABCDEF01")
	f.Add("0x'; DROP TABLE batches;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		a, err := ParseAddress(input)
		if err != nil {
			return
		}
		again, err := ParseAddress(a.String())
		if err != nil {
			t.Fatalf("canonical address failed to parse: %v", err)
		}
		if again != a {
			t.Fatal("round-trip changed address")
		}
	})
}
