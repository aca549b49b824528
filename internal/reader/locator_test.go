package reader

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_ExplicitWins(t *testing.T) {
	src := Source{
		Explicit:   "/books/explicit.epub",
		Configured: "/books/configured.epub",
		Query:      url.Values{"book": {"/books/query.epub"}},
	}
	assert.Equal(t, "/books/explicit.epub", src.Resolve())
}

func TestResolve_ConfiguredBeatsQuery(t *testing.T) {
	src := Source{
		Configured: "/books/configured.epub",
		Query:      url.Values{"book": {"/books/query.epub"}},
	}
	assert.Equal(t, "/books/configured.epub", src.Resolve())
}

func TestResolve_QueryParamOrder(t *testing.T) {
	cases := []struct {
		name  string
		query url.Values
		want  string
	}{
		{
			name: "book wins over file and path",
			query: url.Values{
				"book": {"from-book"},
				"file": {"from-file"},
				"path": {"from-path"},
			},
			want: "from-book",
		},
		{
			name: "file wins over path",
			query: url.Values{
				"file": {"from-file"},
				"path": {"from-path"},
			},
			want: "from-file",
		},
		{
			name:  "path alone",
			query: url.Values{"path": {"from-path"}},
			want:  "from-path",
		},
		{
			name:  "empty values are skipped",
			query: url.Values{"book": {""}, "file": {"from-file"}},
			want:  "from-file",
		},
		{
			name:  "unknown params are ignored",
			query: url.Values{"chapter": {"3"}},
			want:  "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := Source{Query: tc.query}
			assert.Equal(t, tc.want, src.Resolve())
		})
	}
}

func TestResolve_NoSources(t *testing.T) {
	assert.Equal(t, "", Source{}.Resolve())
}

func TestResolve_Deterministic(t *testing.T) {
	src := Source{Configured: "/books/x.epub"}
	assert.Equal(t, src.Resolve(), src.Resolve())
}
