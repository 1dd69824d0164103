package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	testCases := []struct {
		name         string
		curr         time.Time
		cronExp      string
		expectedNext time.Time
		expectedErr  string
	}{
		{
			name:         "every minute",
			curr:         time.UnixMilli(1704719383520).UTC(),
			cronExp:      "* * * * *",
			expectedNext: time.UnixMilli(1704719400000).UTC(),
		},
		{
			name:         "descriptor",
			curr:         time.Date(2024, 1, 8, 13, 9, 43, 0, time.UTC),
			cronExp:      "@daily",
			expectedNext: time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name:        "invalid",
			curr:        time.UnixMilli(1704719383520),
			cronExp:     "random",
			expectedErr: "expected 5 to 6 fields, found 1: [random]",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Next(tc.curr, tc.cronExp)
			if tc.expectedErr != "" {
				assert.EqualError(t, err, tc.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.True(t, tc.expectedNext.Equal(next), "expected %s, got %s", tc.expectedNext, next)
		})
	}
}

func TestOrderedRangeKV(t *testing.T) {
	kvs := OrderedRangeKV(map[string]int{"c": 3, "a": 1, "b": 2})
	require.Len(t, kvs, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{kvs[0].Key, kvs[1].Key, kvs[2].Key})
	assert.Equal(t, 1, kvs[0].Value)
}

func TestFingerprint(t *testing.T) {
	for _, tc := range []struct {
		raw        string
		normalized string
		valid      bool
	}{
		{raw: "0x99990000", normalized: "99990000", valid: true},
		{raw: "aaaa bbbb cccc dddd", normalized: "AAAABBBBCCCCDDDD", valid: true},
		{raw: "0123 4567 89AB CDEF 0123  AAAA BBBB CCCC DDDD EEEE", normalized: "0123456789ABCDEF0123AAAABBBBCCCCDDDDEEEE", valid: true},
		{raw: "alice", normalized: "ALICE", valid: false},
		{raw: "GGGGGGGG", normalized: "GGGGGGGG", valid: false},
	} {
		t.Run(tc.raw, func(t *testing.T) {
			n := NormalizeFingerprint(tc.raw)
			assert.Equal(t, tc.normalized, n)
			assert.Equal(t, tc.valid, IsFingerprint(n))
		})
	}
}
