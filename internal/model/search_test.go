package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips scheme and query", "https://example.com/jobs?page=2", "example.com/jobs"},
		{"strips trailing slash", "https://example.com/jobs/", "example.com/jobs"},
		{"strips fragment", "https://example.com/about#team", "example.com/about"},
		{"lowercases host", "https://Example.COM/About", "example.com/About"},
		{"bare root", "https://example.com/", "example.com"},
		{"keeps www distinct", "https://www.example.com/a", "www.example.com/a"},
		{"garbage passes through trimmed", "not a url/", "not a url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeURL(tt.in))
		})
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	urls := []string{
		"https://example.com/jobs?utm=x",
		"http://www.acme.io/press/release-1/",
		"https://sec.gov/Archives/edgar/data/123",
	}
	for _, u := range urls {
		once := NormalizeURL(u)
		assert.Equal(t, once, NormalizeURL(once))
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Example.com", "example.com"},
		{"www.example.com", "example.com"},
		{"https://www.example.com/about", "example.com"},
		{"example.com:8080", "example.com"},
		{"example.com.", "example.com"},
		{"  ACME.IO  ", "acme.io"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDomain(tt.in), "input %q", tt.in)
	}
}

func TestHostMatchesDomain(t *testing.T) {
	assert.True(t, HostMatchesDomain("https://acme.io/careers", "acme.io"))
	assert.True(t, HostMatchesDomain("https://www.acme.io/careers", "acme.io"))
	assert.True(t, HostMatchesDomain("https://blog.acme.io/post", "acme.io"))
	assert.False(t, HostMatchesDomain("https://notacme.io/x", "acme.io"))
	assert.False(t, HostMatchesDomain("https://acme.io.evil.com/x", "acme.io"))
	assert.False(t, HostMatchesDomain("://bad", "acme.io"))
	assert.False(t, HostMatchesDomain("https://acme.io/x", ""))
}
