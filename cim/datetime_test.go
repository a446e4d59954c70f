package cim_test

import (
	"testing"

	"github.com/rob-gra/go-wbem/cim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateTimeTimestampRoundTrip(t *testing.T) {
	cases := []string{
		"20141009001320.524000+000",
		"20200101235959.000001-300",
		"19991231000000.000000+060",
	}
	for _, wire := range cases {
		dt, err := cim.ParseDateTime(wire)
		require.NoError(t, err)
		assert.Equal(t, wire, dt.String())
	}
}

func TestDateTimeIntervalRoundTrip(t *testing.T) {
	wire := "00000010123045.123456:000"
	dt, err := cim.ParseDateTime(wire)
	require.NoError(t, err)
	assert.True(t, dt.IsInterval())
	assert.Equal(t, wire, dt.String())
}

func TestDateTimeRejectsWrongLength(t *testing.T) {
	_, err := cim.ParseDateTime("20141009001320.524000+00")
	assert.ErrorIs(t, err, cim.ErrBadDateTime)
}

func TestDateTimeArithmetic(t *testing.T) {
	ts, err := cim.ParseDateTime("20200101000000.000000+000")
	require.NoError(t, err)
	interval := cim.NewInterval(1, 0, 0, 0, 0)

	sum := ts.Add(interval)
	assert.Equal(t, "20200102000000.000000+000", sum.String())

	diff := sum.Sub(ts)
	assert.True(t, diff.IsInterval())
	assert.Equal(t, interval.String(), diff.String())
}
