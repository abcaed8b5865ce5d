package util

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "SBI PO Recruitment", CleanText("  SBI PO \n\t Recruitment "))
}

func TestFoldText(t *testing.T) {
	assert.Equal(t, "resume cafe", FoldText("  Résumé   CAFÉ "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abc", Truncate("abc", 10))
	// "₹" is 3 bytes, never split it
	assert.Equal(t, "a", Truncate("a₹b", 2))
}

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"HTTPS://WWW.JobYaari.com/job/sbi-po/?utm_source=x#top", "https://www.jobyaari.com/job/sbi-po"},
		{"https://www.jobyaari.com/?b=2&a=1&fbclid=z", "https://www.jobyaari.com/?a=1&b=2"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalizeURL(tt.in), tt.in)
	}
}

func TestResolveURL(t *testing.T) {
	base, err := url.Parse("https://www.jobyaari.com/category/engineering")
	require.NoError(t, err)

	tests := []struct {
		href string
		want string
		ok   bool
	}{
		{"/job/ntpc-engineer", "https://www.jobyaari.com/job/ntpc-engineer", true},
		{"https://other.org/a", "https://other.org/a", true},
		{"#comments", "", false},
		{"javascript:void(0)", "", false},
		{"mailto:hr@example.com", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ResolveURL(base, tt.href)
		assert.Equal(t, tt.ok, ok, tt.href)
		assert.Equal(t, tt.want, got, tt.href)
	}

	_, ok := ResolveURL(nil, "/relative")
	assert.False(t, ok)
}

func TestHostLimiterSharesPerHost(t *testing.T) {
	hl := NewHostLimiter(1000, 1)
	a := hl.limiterFor("a.example")
	assert.Same(t, a, hl.limiterFor("a.example"))
	assert.NotSame(t, a, hl.limiterFor("b.example"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, hl.WaitURL(ctx, "https://a.example/x"))

	assert.Equal(t, []string{"a.example", "b.example"}, hl.Hosts())

	var nilLimiter *HostLimiter
	assert.NoError(t, nilLimiter.WaitURL(ctx, "https://a.example/x"))
	assert.Nil(t, nilLimiter.Hosts())
}

func TestHostLimiterZeroRateIsUnlimited(t *testing.T) {
	hl := NewHostLimiter(0, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	for i := 0; i < 50; i++ {
		require.NoError(t, hl.WaitURL(ctx, "https://a.example/x"))
	}
}
