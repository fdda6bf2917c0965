package sink

// convert.go turns raw inventory values into typed PostgreSQL values.
//
// Only the valid dataset is stored with typed columns, so most values have
// already passed the field grammar. Conversions still fail closed: anything
// that does not parse is stored as NULL rather than aborting the COPY.

import (
	"net/netip"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/AssetRecon/internal/core"
)

// numericRegex matches integers, decimals and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// timestampLayouts are tried in order. Inventory exports write
// "2006-01-02 15:04:05"; the rest cover hand-edited files.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006",
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgUUID converts a string to pgtype.UUID.
// Returns invalid if the string is empty or not a valid UUID.
func ToPgUUID(s string) pgtype.UUID {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// ToPgTimestamp converts a string to pgtype.Timestamp using timestampLayouts.
func ToPgTimestamp(s string) pgtype.Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Timestamp{Valid: false}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Timestamp{Time: t.UTC(), Valid: true}
		}
	}
	return pgtype.Timestamp{Valid: false}
}

// ToPgInt8 converts a string of decimal digits to pgtype.Int8.
func ToPgInt8(s string) pgtype.Int8 {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Int8{Valid: false}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: n, Valid: true}
}

// ToPgNumeric converts a string to pgtype.Numeric.
// A decimal comma is accepted in place of the point.
func ToPgNumeric(s string) pgtype.Numeric {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Numeric{Valid: false}
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{Valid: false}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}

// ToPgInet converts an address to a single-host prefix for an inet column.
// ok is false when s is not an IP address.
func ToPgInet(s string) (prefix netip.Prefix, ok bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Prefix{}, false
	}
	return netip.PrefixFrom(addr, addr.BitLen()), true
}

// PgUUIDToString converts a pgtype.UUID to its string representation.
// Returns empty string if the UUID is invalid.
func PgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// pgValue converts raw for a column of type t. Failed conversions come back
// as the invalid pgtype value, which COPY writes as NULL.
func pgValue(t core.ColumnType, raw string) any {
	switch t {
	case core.ColumnUUID:
		return ToPgUUID(raw)
	case core.ColumnTimestamp:
		return ToPgTimestamp(raw)
	case core.ColumnInteger:
		return ToPgInt8(raw)
	case core.ColumnNumeric:
		return ToPgNumeric(raw)
	case core.ColumnInet:
		if p, ok := ToPgInet(raw); ok {
			return p
		}
		return nil
	default:
		return raw
	}
}

// pgType is the column DDL type for t.
func pgType(t core.ColumnType) string {
	switch t {
	case core.ColumnUUID:
		return "uuid"
	case core.ColumnTimestamp:
		return "timestamp"
	case core.ColumnInteger:
		return "bigint"
	case core.ColumnNumeric:
		return "numeric"
	case core.ColumnInet:
		return "inet"
	default:
		return "text"
	}
}
