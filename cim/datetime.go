package cim

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateTime is a CIM datetime value. It has two variants: a point-in-time
// timestamp (microsecond precision, explicit UTC offset in minutes) or an
// interval (days, hours, minutes, seconds, microseconds). The wire form
// is always exactly 25 characters; see ParseDateTime.
//
// Wire grammar (DSP0004 clause 5.5):
//
//	yyyymmddhhmmss.mmmmmmsutc   timestamp, sutc is "+ooo" or "-ooo"
//	ddddddddhhmmss.mmmmmm:000   interval, trailing ":000" marks interval
type DateTime struct {
	isInterval bool

	// timestamp fields (isInterval == false)
	t         time.Time // UTC-naive wall clock components
	offsetMin int        // signed UTC offset in minutes

	// interval fields (isInterval == true)
	days, hours, minutes, seconds, micros int
}

// NewTimestamp builds a point-in-time DateTime. offsetMin is the signed
// UTC offset in minutes (e.g. -300 for UTC-05:00).
func NewTimestamp(t time.Time, offsetMin int) DateTime {
	return DateTime{t: t, offsetMin: offsetMin}
}

// NewInterval builds an interval DateTime.
func NewInterval(days, hours, minutes, seconds, micros int) DateTime {
	return DateTime{isInterval: true, days: days, hours: hours, minutes: minutes, seconds: seconds, micros: micros}
}

// IsInterval reports whether this value is an interval rather than a
// point-in-time timestamp.
func (d DateTime) IsInterval() bool { return d.isInterval }

// Time returns the wall-clock timestamp; valid only when !IsInterval().
func (d DateTime) Time() time.Time { return d.t }

// OffsetMinutes returns the signed UTC offset in minutes; valid only when
// !IsInterval().
func (d DateTime) OffsetMinutes() int { return d.offsetMin }

// ParseDateTime parses the 25-character CIM-XML wire form. It rejects any
// string whose length is not exactly 25 or whose shape violates the
// grammar, per spec §4.1.
func ParseDateTime(s string) (DateTime, error) {
	if len(s) != 25 {
		return DateTime{}, fmt.Errorf("%w: wire form must be 25 characters, got %d", ErrBadDateTime, len(s))
	}
	// Position 21 distinguishes the two variants: ':' marks an interval
	// (trailing ":000"), '+'/'-' marks a timestamp's UTC offset sign.
	switch s[21] {
	case ':':
		return parseIntervalWire(s)
	case '+', '-':
		return parseTimestampWire(s)
	default:
		return DateTime{}, fmt.Errorf("%w: byte 21 must be ':', '+' or '-'", ErrBadDateTime)
	}
}

func atoiField(s string, lo, hi int, name string) (int, error) {
	if !isDigits(s[lo:hi]) {
		return 0, fmt.Errorf("%w: field %s: %q is not all digits", ErrBadDateTime, name, s[lo:hi])
	}
	n, err := strconv.Atoi(s[lo:hi])
	if err != nil {
		return 0, fmt.Errorf("%w: field %s: %v", ErrBadDateTime, name, err)
	}
	return n, nil
}

func parseTimestampWire(s string) (DateTime, error) {
	year, err := atoiField(s, 0, 4, "year")
	if err != nil {
		return DateTime{}, err
	}
	month, err := atoiField(s, 4, 6, "month")
	if err != nil {
		return DateTime{}, err
	}
	day, err := atoiField(s, 6, 8, "day")
	if err != nil {
		return DateTime{}, err
	}
	hour, err := atoiField(s, 8, 10, "hour")
	if err != nil {
		return DateTime{}, err
	}
	minute, err := atoiField(s, 10, 12, "minute")
	if err != nil {
		return DateTime{}, err
	}
	second, err := atoiField(s, 12, 14, "second")
	if err != nil {
		return DateTime{}, err
	}
	if s[14] != '.' {
		return DateTime{}, fmt.Errorf("%w: byte 14 must be '.'", ErrBadDateTime)
	}
	micros, err := atoiField(s, 15, 21, "microseconds")
	if err != nil {
		return DateTime{}, err
	}
	offMin, err := atoiField(s, 22, 25, "utc-offset")
	if err != nil {
		return DateTime{}, err
	}
	if s[21] == '-' {
		offMin = -offMin
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, micros*1000, time.UTC)
	return DateTime{t: t, offsetMin: offMin}, nil
}

func parseIntervalWire(s string) (DateTime, error) {
	if s[22:25] != "000" {
		return DateTime{}, fmt.Errorf("%w: interval marker must be \":000\"", ErrBadDateTime)
	}
	days, err := atoiField(s, 0, 8, "days")
	if err != nil {
		return DateTime{}, err
	}
	hours, err := atoiField(s, 8, 10, "hours")
	if err != nil {
		return DateTime{}, err
	}
	minutes, err := atoiField(s, 10, 12, "minutes")
	if err != nil {
		return DateTime{}, err
	}
	seconds, err := atoiField(s, 12, 14, "seconds")
	if err != nil {
		return DateTime{}, err
	}
	if s[14] != '.' {
		return DateTime{}, fmt.Errorf("%w: byte 14 must be '.'", ErrBadDateTime)
	}
	micros, err := atoiField(s, 15, 21, "microseconds")
	if err != nil {
		return DateTime{}, err
	}
	return DateTime{isInterval: true, days: days, hours: hours, minutes: minutes, seconds: seconds, micros: micros}, nil
}

// String renders the 25-character wire form. Parse-then-format is the
// identity on that form (spec §8).
func (d DateTime) String() string {
	if d.isInterval {
		return fmt.Sprintf("%08d%02d%02d%02d.%06d:000", d.days, d.hours, d.minutes, d.seconds, d.micros)
	}
	sign := "+"
	off := d.offsetMin
	if off < 0 {
		sign = "-"
		off = -off
	}
	return fmt.Sprintf("%04d%02d%02d%02d%02d%02d.%06d%s%03d",
		d.t.Year(), int(d.t.Month()), d.t.Day(),
		d.t.Hour(), d.t.Minute(), d.t.Second(), d.t.Nanosecond()/1000,
		sign, off)
}

// Add adds an interval to d. If d is a timestamp the result is a
// timestamp; if d is an interval the result is an interval. Adding a
// timestamp to a timestamp is not defined and panics.
func (d DateTime) Add(interval DateTime) DateTime {
	if !interval.isInterval {
		panic("cim: DateTime.Add requires an interval operand")
	}
	dur := interval.duration()
	if d.isInterval {
		sum := d.duration() + dur
		return durationToInterval(sum)
	}
	return DateTime{t: d.t.Add(dur), offsetMin: d.offsetMin}
}

// Sub returns the interval between two timestamps, or between two
// intervals. Mixing a timestamp and an interval operand panics.
func (d DateTime) Sub(o DateTime) DateTime {
	if d.isInterval != o.isInterval {
		panic("cim: DateTime.Sub requires operands of the same variant")
	}
	if d.isInterval {
		return durationToInterval(d.duration() - o.duration())
	}
	return durationToInterval(d.t.Sub(o.t))
}

func (d DateTime) duration() time.Duration {
	return time.Duration(d.days)*24*time.Hour +
		time.Duration(d.hours)*time.Hour +
		time.Duration(d.minutes)*time.Minute +
		time.Duration(d.seconds)*time.Second +
		time.Duration(d.micros)*time.Microsecond
}

func durationToInterval(dur time.Duration) DateTime {
	neg := dur < 0
	if neg {
		dur = -dur
	}
	days := int(dur / (24 * time.Hour))
	dur -= time.Duration(days) * 24 * time.Hour
	hours := int(dur / time.Hour)
	dur -= time.Duration(hours) * time.Hour
	minutes := int(dur / time.Minute)
	dur -= time.Duration(minutes) * time.Minute
	seconds := int(dur / time.Second)
	dur -= time.Duration(seconds) * time.Second
	micros := int(dur / time.Microsecond)
	if neg {
		days, hours, minutes, seconds, micros = -days, -hours, -minutes, -seconds, -micros
	}
	return NewInterval(days, hours, minutes, seconds, micros)
}

// isDigits reports whether s consists solely of ASCII digits; used by
// atoiField to pre-validate fixed-width fields.
func isDigits(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) == -1
}
