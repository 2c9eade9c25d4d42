package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "fragment stripped", in: "https://example.com/page#top", want: "https://example.com/page"},
		{name: "scheme defaulted", in: "example.com/page", want: "http://example.com/page"},
		{name: "host lowercased", in: "https://Example.COM/Page", want: "https://example.com/Page"},
		{name: "empty path", in: "https://example.com", want: "https://example.com/"},
		{name: "whitespace trimmed", in: "  https://example.com/x ", want: "https://example.com/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := CanonicalURL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "   ", "http://"} {
		_, err := CanonicalURL(bad)
		require.Error(t, err, "input %q", bad)
	}
}

func TestExtractDomain(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "example.com", ExtractDomain("https://example.com/a/b"))
	assert.Equal(t, "example.com", ExtractDomain("example.com/a"))
	assert.Equal(t, "books.toscrape.com", ExtractDomain("http://Books.ToScrape.com/"))
	assert.Equal(t, "unknown", ExtractDomain("://not a url"))
}
