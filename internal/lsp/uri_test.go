package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURIToPath(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"file:///work/main.noo", "/work/main.noo"},
		{"file:///work/my%20project/main.noo", "/work/my project/main.noo"},
		{"/already/a/path.noo", "/already/a/path.noo"},
		{"untitled:Untitled-1", "untitled:Untitled-1"},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.want, URIToPath(tt.uri))
		})
	}
}

func TestPathToURIRoundTrip(t *testing.T) {
	path := "/work/my project/list.noo"
	uri := PathToURI(path)

	assert.Equal(t, "file:///work/my%20project/list.noo", uri)
	assert.Equal(t, path, URIToPath(uri))
}
