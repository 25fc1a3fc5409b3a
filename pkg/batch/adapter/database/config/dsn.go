package config

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"
)

// MySQLDSN builds a go-sql-driver/mysql DSN: user:password@tcp(host:port)/dbname?parseTime=true&charset=utf8mb4.
// Multi statements are enabled for migration files.
func MySQLDSN(c DatabaseConfig) string {
	port := c.Port
	if port == 0 {
		port = 3306
	}
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", c.Host, port)
	mc.DBName = c.Database
	mc.ParseTime = true
	mc.MultiStatements = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	if c.Sslmode == "require" {
		mc.TLSConfig = "true"
	}
	return mc.FormatDSN()
}

// PostgresDSN builds a key/value DSN understood by both lib/pq and pgx.
func PostgresDSN(c DatabaseConfig) string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslMode := c.Sslmode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, port, c.User, c.Password, c.Database, sslMode)
}

// SQLServerDSN builds a sqlserver:// URL for go-mssqldb.
func SQLServerDSN(c DatabaseConfig) string {
	port := c.Port
	if port == 0 {
		port = 1433
	}
	query := url.Values{}
	query.Set("database", c.Database)
	if c.Sslmode != "" {
		query.Set("encrypt", c.Sslmode)
	}
	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + strconv.Itoa(port),
		RawQuery: query.Encode(),
	}
	return u.String()
}

// SQLiteDSN returns the database file path, or ":memory:" when it is empty.
func SQLiteDSN(c DatabaseConfig) string {
	if c.Database == "" {
		return ":memory:"
	}
	return c.Database
}
