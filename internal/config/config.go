// Package config reads the server configuration from command-line flags,
// the environment and an optional .env file, in that order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/erazemk/loadout/internal/allocation"
	"github.com/erazemk/loadout/internal/printsheet"
)

// Config holds all server settings.
type Config struct {
	DB        string
	Addr      string
	AdminUser string
	LogPath   string

	Restock  allocation.RestockPolicy
	TokenTTL time.Duration
	Location *time.Location

	ChromePath   string
	PrintTimeout time.Duration
	Archive      printsheet.BucketConfig
}

const usage = `Usage: loadout [flags]

Flags:
  -d, -db <path>          SQLite database path (default: loadout.sqlite3, env LOADOUT_DB)
  -a, -addr <host:port>   listen address (default: :8080, env LOADOUT_ADDR)
  -u, -user <name>        admin username on first run (default: Admin, env LOADOUT_ADMIN_USER)
  -l, -log <path>         log file path (default: none, env LOADOUT_LOG)
  -r, -restock <policy>   restock on list delete: loaded or all (default: loaded, env LOADOUT_RESTOCK)
  -tz <zone>              time zone that decides "today" (default: Local, env LOADOUT_TZ)
  -h, -help               show this help and exit

Environment only:
  LOADOUT_TOKEN_TTL       login token lifetime (default: 168h)
  CHROME_PATH             browser used for PDF sheets (default: looked up)
  PRINT_TIMEOUT           PDF rendering timeout (default: 30s)
  R2_ENDPOINT or R2_ACCOUNT_ID, R2_BUCKET, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY,
  R2_PUBLIC_URL, R2_PREFIX
                          archive printed sheets to an S3-compatible bucket

Variables are also read from envFile (.env) when it exists.
`

// Load parses args (without the program name). Values missing from args
// come from the environment, then from envFile. A missing envFile is not an
// error. For -h it prints usage to out and returns flag.ErrHelp.
func Load(args []string, envFile string, out io.Writer) (*Config, error) {
	file, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", envFile, err)
	}
	env := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		if v := file[key]; v != "" {
			return v
		}
		return def
	}

	fset := flag.NewFlagSet("loadout", flag.ContinueOnError)
	fset.SetOutput(io.Discard)
	fset.Usage = func() { fmt.Fprint(out, usage) }

	cfg := &Config{}
	stringFlag(fset, &cfg.DB, env("LOADOUT_DB", "loadout.sqlite3"), "db", "d")
	stringFlag(fset, &cfg.Addr, env("LOADOUT_ADDR", ":8080"), "addr", "a")
	stringFlag(fset, &cfg.AdminUser, env("LOADOUT_ADMIN_USER", "Admin"), "user", "u")
	stringFlag(fset, &cfg.LogPath, env("LOADOUT_LOG", ""), "log", "l")

	var restock, tz string
	stringFlag(fset, &restock, env("LOADOUT_RESTOCK", string(allocation.RestockLoaded)), "restock", "r")
	stringFlag(fset, &tz, env("LOADOUT_TZ", "Local"), "tz")

	if err := fset.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fset.Usage()
			return nil, err
		}
		return nil, err
	}
	if fset.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fset.Arg(0))
	}

	if cfg.Restock, err = allocation.ParseRestockPolicy(restock); err != nil {
		return nil, err
	}
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", tz, err)
	}
	if cfg.TokenTTL, err = durationEnv(env, "LOADOUT_TOKEN_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PrintTimeout, err = durationEnv(env, "PRINT_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	cfg.ChromePath = env("CHROME_PATH", "")

	cfg.Archive = printsheet.BucketConfig{
		Endpoint:        env("R2_ENDPOINT", ""),
		Region:          env("R2_REGION", "auto"),
		Bucket:          env("R2_BUCKET", ""),
		AccessKeyID:     env("R2_ACCESS_KEY_ID", ""),
		SecretAccessKey: env("R2_SECRET_ACCESS_KEY", ""),
		Prefix:          env("R2_PREFIX", "loading-sheets/"),
		PublicURL:       env("R2_PUBLIC_URL", ""),
	}
	if cfg.Archive.Endpoint == "" {
		if account := env("R2_ACCOUNT_ID", ""); account != "" {
			cfg.Archive.Endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", account)
		}
	}

	return cfg, nil
}

// stringFlag registers the same variable under every name.
func stringFlag(fset *flag.FlagSet, p *string, def string, names ...string) {
	for _, name := range names {
		fset.StringVar(p, name, def, "")
	}
}

func durationEnv(env func(string, string) string, key string, def time.Duration) (time.Duration, error) {
	v := env(key, "")
	if v == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	// Plain numbers are seconds.
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid %s %q: expected a duration such as 30s or 12h", key, v)
}
