package config

import (
	"fmt"
	"strings"
)

// DSN returns a go-sql-driver/mysql data source name. If ConnectionString
// is set it is used directly, with parseTime and loc appended when absent;
// those two parameters are required for the DATETIME(6) timestamps the
// row ordering depends on.
func (d *DatabaseConfig) DSN() string {
	var dsn string

	if d.ConnectionString != "" {
		dsn = d.ConnectionString
		if !strings.Contains(dsn, "parseTime") {
			if strings.Contains(dsn, "?") {
				dsn += "&parseTime=true"
			} else {
				dsn += "?parseTime=true"
			}
		}
		if !strings.Contains(dsn, "loc=") {
			dsn += "&loc=UTC"
		}
	} else {
		dsn = fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC",
			d.User,
			d.Password,
			d.Host,
			d.Port,
			d.Database,
		)
	}

	if d.TLSMode != "" && d.TLSMode != "false" && !strings.Contains(dsn, "tls=") {
		dsn += fmt.Sprintf("&tls=%s", d.TLSMode)
	}

	return dsn
}
