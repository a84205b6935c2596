package domain

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "carbonmint/pkg/domain-errors"
)

// Typed identifiers keep credit, batch, and retirement ids from being mixed
// up at compile time. Sequential ids start at 1; zero is never allocated.
type (
	CreditID     uint64
	BatchID      uint64
	RetirementID uint64
)

// Address is a 20-byte account identifier rendered as 0x-prefixed lowercase hex.
type Address [20]byte

// RequestID correlates a verification request with its asynchronous callback.
type RequestID [32]byte

// Hash is an opaque 32-byte digest such as a verification document hash.
type Hash [32]byte

func (id CreditID) String() string     { return strconv.FormatUint(uint64(id), 10) }
func (id BatchID) String() string      { return strconv.FormatUint(uint64(id), 10) }
func (id RetirementID) String() string { return strconv.FormatUint(uint64(id), 10) }

func ParseCreditID(s string) (CreditID, error) {
	v, err := parseSequential(s, "credit id")
	return CreditID(v), err
}

func ParseBatchID(s string) (BatchID, error) {
	v, err := parseSequential(s, "batch id")
	return BatchID(v), err
}

func ParseRetirementID(s string) (RetirementID, error) {
	v, err := parseSequential(s, "retirement id")
	return RetirementID(v), err
}

func parseSequential(s, label string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", label)
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s", label)
	}
	if v == 0 {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "%s must be positive", label)
	}
	return v, nil
}

func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }
func (a Address) IsZero() bool   { return a == Address{} }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress accepts 0x-prefixed hex of any case and normalizes it.
// The zero address parses successfully; callers decide whether it is allowed.
func ParseAddress(s string) (Address, error) {
	var a Address
	if err := decodeFixedHex(s, a[:], "address"); err != nil {
		return Address{}, err
	}
	return a, nil
}

// MustAddress panics on malformed input. Intended for configuration
// constants and tests.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (r RequestID) String() string { return "0x" + hex.EncodeToString(r[:]) }
func (r RequestID) IsZero() bool   { return r == RequestID{} }

func (r RequestID) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *RequestID) UnmarshalText(text []byte) error {
	parsed, err := ParseRequestID(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func ParseRequestID(s string) (RequestID, error) {
	var r RequestID
	if err := decodeFixedHex(s, r[:], "request id"); err != nil {
		return RequestID{}, err
	}
	if r.IsZero() {
		return RequestID{}, dErrors.New(dErrors.CodeInvalidInput, "request id must not be zero")
	}
	return r, nil
}

func (h Hash) String() string { return "0x" + hex.EncodeToString(h[:]) }
func (h Hash) IsZero() bool   { return h == Hash{} }

func (h Hash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash decodes a 32-byte hex digest. An empty string is the zero hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if strings.TrimSpace(s) == "" {
		return h, nil
	}
	if err := decodeFixedHex(s, h[:], "hash"); err != nil {
		return Hash{}, err
	}
	return h, nil
}

func decodeFixedHex(s string, dst []byte, label string) error {
	s = strings.TrimSpace(s)
	raw, ok := strings.CutPrefix(strings.ToLower(s), "0x")
	if !ok {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s must be 0x-prefixed", label)
	}
	if len(raw) != hex.EncodedLen(len(dst)) {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s must be %d hex characters", label, hex.EncodedLen(len(dst)))
	}
	if _, err := hex.Decode(dst, []byte(raw)); err != nil {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s is not valid hex", label)
	}
	return nil
}

// Keccak256 hashes the concatenation of parts with legacy Keccak-256.
func Keccak256(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// DeriveRequestID computes keccak256(gateway || creditId || sequence) with
// both integers encoded as 8-byte big-endian.
func DeriveRequestID(gateway Address, credit CreditID, sequence uint64) RequestID {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(credit))
	binary.BigEndian.PutUint64(buf[8:], sequence)
	var r RequestID
	copy(r[:], Keccak256(gateway[:], buf[:]))
	return r
}

// DeriveLedgerAddress computes the last 20 bytes of
// keccak256(0xff || factory || batchId).
func DeriveLedgerAddress(factory Address, batch BatchID) Address {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(batch))
	sum := Keccak256([]byte{0xff}, factory[:], buf[:])
	var a Address
	copy(a[:], sum[len(sum)-len(a):])
	return a
}
