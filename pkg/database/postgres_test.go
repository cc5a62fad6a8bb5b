package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/simcheck-bridge/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "bridge", Password: `it's secret`, Name: "simcheck"})
	assert.Equal(t, `host='db' port='5432' user='bridge' password='it\'s secret' dbname='simcheck' sslmode='disable' application_name='simcheck-bridge' connect_timeout='5'`, dsn)
}

func TestDSNSkipsEmptyValues(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, Name: "simcheck", SSLMode: "require"})
	assert.NotContains(t, dsn, "password")
	assert.Contains(t, dsn, "sslmode='require'")
}
