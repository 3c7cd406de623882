package httpx

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Reason string `json:"reason"`
}

func TestDecodeJSONRejectsUnknownAndTrailing(t *testing.T) {
	var p payload
	require.NoError(t, DecodeJSON(strings.NewReader(`{"reason":"late"}`), &p))
	assert.Equal(t, "late", p.Reason)

	assert.Error(t, DecodeJSON(strings.NewReader(`{"other":1}`), &p))
	assert.Error(t, DecodeJSON(strings.NewReader(`{"reason":"a"}{"reason":"b"}`), &p))
	assert.Error(t, DecodeJSON(strings.NewReader(``), &p))
}

func TestDecodeOptionalJSON(t *testing.T) {
	var p payload
	assert.NoError(t, DecodeOptionalJSON(strings.NewReader(``), &p))
	assert.Empty(t, p.Reason)
	assert.Error(t, DecodeOptionalJSON(strings.NewReader(`{`), &p))
}

func TestParsePage(t *testing.T) {
	page, limit, offset, err := ParsePage(url.Values{"page": {"3"}, "limit": {"100"}}, 10, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page)
	assert.Equal(t, int64(50), limit)
	assert.Equal(t, int64(100), offset)

	page, limit, offset, err = ParsePage(url.Values{}, 10, 50)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 10, 0}, []int64{page, limit, offset})

	_, _, _, err = ParsePage(url.Values{"page": {"0"}}, 10, 50)
	assert.Error(t, err)
}

func TestQueryHelpers(t *testing.T) {
	q := url.Values{"month": {"7"}, "lat": {"14.55"}, "bad": {"x"}}

	month, err := QueryInt(q, "month", 1)
	require.NoError(t, err)
	assert.Equal(t, 7, month)

	year, err := QueryInt(q, "year", 2024)
	require.NoError(t, err)
	assert.Equal(t, 2024, year)

	_, err = QueryInt(q, "bad", 0)
	assert.EqualError(t, err, "invalid bad")

	lat, err := QueryFloat(q, "lat")
	require.NoError(t, err)
	require.NotNil(t, lat)
	assert.InDelta(t, 14.55, *lat, 1e-9)

	missing, err := QueryFloat(q, "lng")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = QueryFloat(q, "bad")
	assert.Error(t, err)
}
