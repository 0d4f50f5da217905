package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"retail-rfm/pkg/models"

	_ "github.com/go-sql-driver/mysql"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Open DSN mariadb:// ou mysql:// → format MySQL driver
func Open(dsn string) (*sql.DB, string, error) {
	mysqlDSN, err := toMySQLDSN(dsn)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		return nil, "", err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, mysqlDSN, nil
}

func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pw, _ := u.User.Password()
			pass = pw
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", fmt.Errorf("dsn incomplet (user/host/db)")
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			user, pass, host, db), nil
	}
	return dsn, nil
}

func validTable(name string) error {
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("table invalide: %q", name)
	}
	return nil
}

// LoadTable lit une table d'export de transactions et la renvoie sous forme
// brute (en-tête = noms de colonnes SQL, cellules texte). NULL => cellule vide.
func LoadTable(ctx context.Context, db *sql.DB, tableName string) (models.RawTable, error) {
	if err := validTable(tableName); err != nil {
		return models.RawTable{}, err
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", tableName))
	if err != nil {
		return models.RawTable{}, fmt.Errorf("query %s: %w", tableName, err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return models.RawTable{}, err
	}

	raw := models.RawTable{Header: header}
	cells := make([]sql.NullString, len(header))
	dest := make([]any, len(header))
	for i := range cells {
		dest[i] = &cells[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return models.RawTable{}, fmt.Errorf("scan %s: %w", tableName, err)
		}
		raw.Rows = append(raw.Rows, nullStrings(cells))
	}
	if err := rows.Err(); err != nil {
		return models.RawTable{}, err
	}

	slog.Debug("source table loaded", "table", tableName, "columns", len(header), "rows", len(raw.Rows))
	return raw, nil
}

func nullStrings(cells []sql.NullString) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if c.Valid {
			out[i] = c.String
		}
	}
	return out
}
