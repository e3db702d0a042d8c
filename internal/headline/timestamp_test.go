package headline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	day := func(s string) time.Time {
		d, err := time.Parse(time.DateOnly, s)
		require.NoError(t, err)
		return d
	}
	tests := []struct {
		in   string
		want []Timestamp
	}{
		{"<2024-05-01>", []Timestamp{{Active: true, Date: day("2024-05-01")}}},
		{"[2024-05-01 Wed]", []Timestamp{{Date: day("2024-05-01")}}},
		{"<2024-05-01 Wed 9:05>", []Timestamp{{Active: true, Date: day("2024-05-01"), Time: "9:05"}}},
		{"<2024-05-01 Wed 10:00-11:30 +1w -2d>", []Timestamp{{
			Active: true, Date: day("2024-05-01"), Time: "10:00", EndTime: "11:30", Repeater: "+1w", Delay: "-2d",
		}}},
		{"<2024-05-01 .+1m>", []Timestamp{{Active: true, Date: day("2024-05-01"), Repeater: ".+1m"}}},
		{"<2024-05-01 --3d ++1y>", []Timestamp{{Active: true, Date: day("2024-05-01"), Repeater: "++1y", Delay: "--3d"}}},
		{"[2024-01-01]--[2024-01-03]", []Timestamp{{Date: day("2024-01-01")}, {Date: day("2024-01-03")}}},
		{"<2024-01-01 -1d>--<2024-01-02>", []Timestamp{
			{Active: true, Date: day("2024-01-01"), Delay: "-1d"},
			{Active: true, Date: day("2024-01-02")},
		}},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseTimestampRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"tomorrow",
		"<not a date at all>",
		"[banana]",
		"<2024-13-01>",
		"<2024-02-30>",
		"<2024-05-01 25:00>",
		"<2024-05-01 10:60>",
		"<2024-05-01]",
		"<2024-05-01 +1w +2d>",
		"<2024-05-01 -1d -2d>",
		"<2024-05-01 +1x>",
		"<2024-01-01>--[2024-01-02]",
		"<2024-01-01> trailing",
	} {
		_, err := ParseTimestamp(in)
		assert.ErrorIs(t, err, ErrInvalidPlanning, "%q", in)
	}
}

func TestInvalidTimestampIsNotPlanning(t *testing.T) {
	h, err := Parse("* A\nDEADLINE: <not a date at all>\nnotes\n", DefaultContext())
	require.NoError(t, err)
	assert.True(t, h.Planning.IsZero())
	assert.Equal(t, "DEADLINE: <not a date at all>\nnotes\n", h.Body)

	bad := Headline{Level: 1, Title: "x", Planning: Planning{Scheduled: "[banana]"}}
	_, err = bad.Render(DefaultContext())
	assert.ErrorIs(t, err, ErrInvalidPlanning)
}
