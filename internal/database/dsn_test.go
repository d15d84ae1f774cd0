package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "kestrel", Name: "kestrel"})
	require.NoError(t, err)
	require.Contains(t, dsn, "host=localhost")
	require.Contains(t, dsn, "port=5432")
	require.Contains(t, dsn, "sslmode=disable")
}

func TestBuildPostgresDSNRequiresUser(t *testing.T) {
	_, err := buildPostgresDSN(Config{Name: "kestrel"})
	require.Error(t, err)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "root", Password: "secret", Name: "kestrel", Host: "db", Port: 3307})
	require.NoError(t, err)
	require.Contains(t, dsn, "root:secret@tcp(db:3307)/kestrel?")
	require.Contains(t, dsn, "parseTime=True")
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}
