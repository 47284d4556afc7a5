package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDatabaseConnectionConfig(t *testing.T) {
	cfg := DatabaseConfig{
		Driver:       " PostgreSQL ",
		Postgres:     DBAuthConfig{Host: " db ", Port: 5432, Database: "crm", Username: "crm", Password: "pw"},
		MySQL:        DBAuthConfig{Host: "mysql", Port: 3306},
		MaxOpenConns: 12,
	}

	dbCfg := cfg.ConnectionConfig()
	require.Equal(t, "postgres", dbCfg.Driver)
	require.Equal(t, "db", dbCfg.Host)
	require.Equal(t, 5432, dbCfg.Port)
	require.Equal(t, "crm", dbCfg.Name)
	require.Equal(t, "pw", dbCfg.Password)
	require.Equal(t, 12, dbCfg.MaxOpenConns)

	cfg.Driver = "mariadb"
	dbCfg = cfg.ConnectionConfig()
	require.Equal(t, "mysql", dbCfg.Driver)
	require.Equal(t, "mysql", dbCfg.Host)
	require.Equal(t, 3306, dbCfg.Port)

	cfg.Driver = ""
	cfg.Path = " ./data/crm.sqlite "
	dbCfg = cfg.ConnectionConfig()
	require.Equal(t, "sqlite", dbCfg.Driver)
	require.Equal(t, "./data/crm.sqlite", dbCfg.Path)
	require.Empty(t, dbCfg.Host)

	cfg.Driver = "oracle"
	require.Equal(t, "oracle", cfg.ConnectionConfig().Driver)
}
