package rangestore

import (
	"encoding/json"
	"testing"

	"barcache/internal/cacheerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRoundTrip(t *testing.T) {
	s := NewOrdered[int]()
	require.NoError(t, s.AddRange([]int{1, 2, 3}))
	require.NoError(t, s.AddRange([]int{7, 8}))
	require.NoError(t, s.SetRange(1, 3, 42))

	raw, err := json.Marshal(s.Document())
	require.NoError(t, err)

	var doc Document[int, int, int]
	require.NoError(t, json.Unmarshal(raw, &doc))
	restored, err := FromDocument(doc, Identity[int])
	require.NoError(t, err)

	assert.Equal(t, s.Len(), restored.Len())
	assert.Equal(t, s.TotalLen(), restored.TotalLen())
	assert.Equal(t, s.Entries(), restored.Entries())
	assert.Equal(t, s.Intervals(), restored.Intervals())
}

func TestFromDocumentRejectsBrokenInvariants(t *testing.T) {
	cases := []struct {
		name string
		doc  Document[int, int, int]
	}{
		{"empty data", Document[int, int, int]{Ranges: []Entry[int, int]{{Start: 1, End: 1}}}},
		{"inverted bounds", Document[int, int, int]{Ranges: []Entry[int, int]{{Start: 3, End: 1, Data: []int{1, 3}}}}},
		{"unsorted data", Document[int, int, int]{Ranges: []Entry[int, int]{{Start: 1, End: 3, Data: []int{3, 1}}}}},
		{"bounds mismatch", Document[int, int, int]{Ranges: []Entry[int, int]{{Start: 0, End: 3, Data: []int{1, 3}}}}},
		{"overlapping ranges", Document[int, int, int]{Ranges: []Entry[int, int]{
			{Start: 1, End: 3, Data: []int{1, 3}},
			{Start: 3, End: 5, Data: []int{3, 5}},
		}}},
		{"empty interval", Document[int, int, int]{Intervals: []Interval[int, int]{{Range: Bound[int]{Start: 2, End: 2, EndOpen: true}}}}},
		{"overlapping intervals", Document[int, int, int]{Intervals: []Interval[int, int]{
			{Range: Bound[int]{Start: 1, End: 4}},
			{Range: Bound[int]{Start: 4, End: 6}},
		}}},
		{"future version", Document[int, int, int]{Version: DocumentVersion + 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromDocument(tc.doc, Identity[int])
			require.Error(t, err)
			assert.ErrorIs(t, err, cacheerr.ErrParse)
		})
	}
}

func TestFromDocumentSortsRanges(t *testing.T) {
	doc := Document[int, int, int]{Ranges: []Entry[int, int]{
		{Start: 10, End: 11, Data: []int{10, 11}},
		{Start: 1, End: 2, Data: []int{1, 2}},
	}}
	s, err := FromDocument(doc, Identity[int])
	require.NoError(t, err)
	assert.Equal(t, Found, s.Query(1, 2).Status)
	assert.Equal(t, SpansMultiple, s.Query(0, 20).Status)
	assert.Equal(t, []int{1, 2, 10, 11}, s.Query(0, 20).Points)
}
