package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// ISODate is the wire layout of due and settlement dates.
	ISODate = "2006-01-02"
	// MonthLayout is the wire layout of month keys.
	MonthLayout = "2006-01"
)

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidMonth = errors.New("invalid month")
)

type (
	// Date is a calendar day in UTC. The zero value encodes as "".
	Date struct {
		time.Time
	}

	// YearMonth identifies a calendar month.
	YearMonth struct {
		Year  int
		Month time.Month
	}

	// Timestamp accepts RFC3339 strings, ISO dates or epoch milliseconds.
	Timestamp struct {
		time.Time
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD. An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(ISODate, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// MustDate is ParseDate for literals known to be valid.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsEmpty reports whether the date is unset
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(ISODate)
}

// YearMonth returns the month the date falls in.
func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

// AddMonths advances the date by n calendar months keeping the day of
// month, clamped to the length of the target month.
func (d Date) AddMonths(n int) Date {
	if d.IsZero() {
		return d
	}
	target := d.YearMonth().AddMonths(n)
	day := min(d.Day(), target.DaysIn())
	return NewDate(target.Year, target.Month, day)
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, data)
	}
	// Stored documents sometimes carry a full timestamp.
	if len(s) > len(ISODate) {
		s = s[:len(ISODate)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// dateKeys are the document fields that hold a Date.
var dateKeys = map[string]bool{"dueDate": true, "settlementDate": true, "purchaseDate": true}

// ClearInvalidDates blanks every date field of a JSON document that would
// not decode as a Date, at any depth, and returns the rewritten document
// with the paths it cleared. Other values are kept as written.
func ClearInvalidDates(doc []byte) ([]byte, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, nil, err
	}
	var cleared []string
	clearDates(tree, "", &cleared)
	if len(cleared) == 0 {
		return doc, nil, nil
	}
	out, err := json.Marshal(tree)
	if err != nil {
		return nil, nil, err
	}
	return out, cleared, nil
}

func clearDates(node any, path string, cleared *[]string) {
	switch v := node.(type) {
	case map[string]any:
		for key, child := range v {
			p := key
			if path != "" {
				p = path + "." + key
			}
			if dateKeys[key] && !decodesAsDate(child) {
				v[key] = ""
				*cleared = append(*cleared, p)
				continue
			}
			clearDates(child, p, cleared)
		}
	case []any:
		for i, child := range v {
			clearDates(child, fmt.Sprintf("%s[%d]", path, i), cleared)
		}
	}
}

func decodesAsDate(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	if len(s) > len(ISODate) {
		s = s[:len(ISODate)]
	}
	_, err := ParseDate(s)
	return err == nil
}

// ParseYearMonth parses YYYY-MM.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse(MonthLayout, strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

func (ym YearMonth) IsZero() bool {
	return ym.Year == 0 && ym.Month == 0
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// AddMonths shifts the month by n, rolling the year over as needed.
func (ym YearMonth) AddMonths(n int) YearMonth {
	total := ym.Year*12 + int(ym.Month) - 1 + n
	return YearMonth{Year: total / 12, Month: time.Month(total%12 + 1)}
}

// First returns the first day of the month.
func (ym YearMonth) First() Date {
	return NewDate(ym.Year, ym.Month, 1)
}

// LastDay returns the last calendar day of the month.
func (ym YearMonth) LastDay() Date {
	return Date{Time: time.Date(ym.Year, ym.Month+1, 0, 0, 0, 0, 0, time.UTC)}
}

// DaysIn returns the number of days in the month.
func (ym YearMonth) DaysIn() int {
	return ym.LastDay().Day()
}

// Before reports whether ym is earlier than other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

func (ym YearMonth) MarshalText() ([]byte, error) {
	if ym.IsZero() {
		return []byte{}, nil
	}
	return []byte(ym.String()), nil
}

func (ym *YearMonth) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*ym = YearMonth{}
		return nil
	}
	parsed, err := ParseYearMonth(string(data))
	if err != nil {
		return err
	}
	*ym = parsed
	return nil
}

// MonthsUntil returns the signed number of months from ym to other.
func (ym YearMonth) MonthsUntil(other YearMonth) int {
	return (other.Year*12 + int(other.Month)) - (ym.Year*12 + int(ym.Month))
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(ts.UTC().Format(time.RFC3339))
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*ts = Timestamp{}
		return nil
	}
	if len(data) > 0 && data[0] != '"' {
		ms, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidDate, data)
		}
		*ts = Timestamp{Time: time.UnixMilli(int64(ms)).UTC()}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := parseLooseTime(s)
	if !ok {
		// Unparseable creation stamps are dropped rather than rejected.
		*ts = Timestamp{}
		return nil
	}
	*ts = Timestamp{Time: parsed}
	return nil
}

func parseLooseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", ISODate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
