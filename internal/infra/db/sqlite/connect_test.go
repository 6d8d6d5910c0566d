package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathFromURL(t *testing.T) {
	tests := map[string]string{
		"sqlite:///var/lib/brandcount.db": "/var/lib/brandcount.db",
		"sqlite://brandcount.db":          "brandcount.db",
		"sqlite::memory:":                 ":memory:",
		"sqlite:data/app.db":              "data/app.db",
	}
	for in, want := range tests {
		got, err := PathFromURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := PathFromURL("sqlite://")
	assert.Error(t, err)
	_, err = PathFromURL("mysql://x")
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file:app.db?_foreign_keys=on&_busy_timeout=5000", dsn("app.db"))
	assert.Equal(t, "file:app.db?mode=rwc&_foreign_keys=on&_busy_timeout=5000", dsn("app.db?mode=rwc"))
	assert.Contains(t, dsn(":memory:"), "memory")
}
