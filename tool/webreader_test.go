package tool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html>
<head><title>Release Notes</title><style>body { color: red; }</style></head>
<body>
<nav>Home | About</nav>
<script>alert("ignore me")</script>
<h1>Version 2.0</h1>
<p>This release adds streaming support.</p>
<footer>copyright</footer>
</body>
</html>`

func TestWebPageReaderExtractsText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePage))
	}))
	defer server.Close()

	reader := NewWebPageReader()
	result, err := reader.Call(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Contains(t, result, "Title: Release Notes")
	assert.Contains(t, result, "Version 2.0")
	assert.Contains(t, result, "streaming support")
	assert.NotContains(t, result, "alert")
	assert.NotContains(t, result, "color: red")
	assert.NotContains(t, result, "copyright")
}

func TestWebPageReaderTruncates(t *testing.T) {
	long := "<html><body><p>" + strings.Repeat("word ", 1000) + "</p></body></html>"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(long))
	}))
	defer server.Close()

	reader := NewWebPageReader(WithReaderMaxChars(100))
	result, err := reader.Call(context.Background(), server.URL)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result), 110)
	assert.True(t, strings.HasSuffix(result, "..."))
}

func TestWebPageReaderStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	reader := NewWebPageReader()
	_, err := reader.Call(context.Background(), server.URL)
	assert.ErrorContains(t, err, "404")
}
