package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var ErrMissingCredentials = errors.New("config: missing credentials")

// Credentials are the connection parameters for a SQL database.
type Credentials struct {
	Host     string
	Database string
	User     string
	Password string
	Driver   string
}

// Validate reports every required field that is empty.
func (c Credentials) Validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "host")
	}
	if c.Database == "" {
		missing = append(missing, "db")
	}
	if c.User == "" {
		missing = append(missing, "user_name")
	}
	if c.Password == "" {
		missing = append(missing, "user_password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// CredentialsSource locates a credentials file: <Dir>/<User>_<Database>_credentials.csv.
type CredentialsSource struct {
	Dir      string
	User     string
	Database string
}

func (s CredentialsSource) Path() string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%s_credentials.csv", s.User, s.Database))
}

func (s CredentialsSource) Validate() error {
	switch {
	case s.Dir == "":
		return errors.New("config: credentials directory is required")
	case s.User == "":
		return errors.New("config: credentials user is required")
	case s.Database == "":
		return errors.New("config: credentials database is required")
	}
	return nil
}

// LoadCredentials reads the first row of a ';'-separated credentials file
// with columns host;db;user_name;user_password and an optional driver.
func LoadCredentials(src CredentialsSource) (Credentials, error) {
	if err := src.Validate(); err != nil {
		return Credentials{}, err
	}

	path := src.Path()
	f, err := os.Open(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("config: open credentials: %w", err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.WithDelimiter(';'),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return Credentials{}, fmt.Errorf("config: read credentials %s: %w", path, df.Err)
	}
	if df.Nrow() == 0 {
		return Credentials{}, fmt.Errorf("%w: %s has no rows", ErrMissingCredentials, path)
	}

	names := df.Names()
	field := func(col string) string {
		if !slices.Contains(names, col) {
			return ""
		}
		return strings.TrimSpace(df.Col(col).Records()[0])
	}

	creds := Credentials{
		Host:     field("host"),
		Database: field("db"),
		User:     field("user_name"),
		Password: field("user_password"),
		Driver:   field("driver"),
	}
	if creds.Database == "" {
		creds.Database = src.Database
	}
	if err := creds.Validate(); err != nil {
		return Credentials{}, fmt.Errorf("%s: %w", path, err)
	}
	return creds, nil
}
