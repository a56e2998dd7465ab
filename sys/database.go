package sys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/mattn/go-sqlite3"
)

var DB *sql.DB

func InitDatabase(ctx context.Context, dataSourceName string) error {
	// The driver registers itself in init(); referencing it keeps the import explicit.
	_ = sqlite3.SQLiteDriver{}

	var err error
	DB, err = sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return err
	}

	DB.SetMaxOpenConns(5)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA cache_size=-2000;",
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, p := range pragmas {
		if _, err := DB.ExecContext(initCtx, p); err != nil {
			return fmt.Errorf(MsgDatabasePragmaError, p, err)
		}
	}

	tx, err := DB.BeginTx(initCtx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tableQueries := []string{
		`CREATE TABLE IF NOT EXISTS bot_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS lookup_cache (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lookup_cache_expires ON lookup_cache (expires_at)`,
	}

	for _, q := range tableQueries {
		if _, err := tx.ExecContext(initCtx, q); err != nil {
			return fmt.Errorf(MsgDatabaseTableError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	LogDatabase(MsgDatabaseInitSuccess)
	return nil
}

func CloseDatabase() {
	if DB != nil {
		DB.Close()
	}
}

// --- Bot config ---

func GetBotConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := DB.QueryRowContext(ctx, "SELECT value FROM bot_config WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func SetBotConfig(ctx context.Context, key, value string) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO bot_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

func guildAutoplayKey(guildID snowflake.ID) string {
	return "autoplay_default:" + guildID.String()
}

// GetGuildAutoplay returns the saved autoplay default for new sessions in a guild.
func GetGuildAutoplay(ctx context.Context, guildID snowflake.ID) (on bool, ok bool, err error) {
	v, err := GetBotConfig(ctx, guildAutoplayKey(guildID))
	if err != nil || v == "" {
		return false, false, err
	}
	on, err = strconv.ParseBool(v)
	if err != nil {
		return false, false, nil
	}
	return on, true, nil
}

func SetGuildAutoplay(ctx context.Context, guildID snowflake.ID, on bool) error {
	return SetBotConfig(ctx, guildAutoplayKey(guildID), strconv.FormatBool(on))
}

// --- Lookup cache ---

// LookupCache persists external lookup responses with a TTL.
type LookupCache struct {
	db  *sql.DB
	now func() time.Time
}

// NewLookupCache uses db, or the global DB when db is nil.
func NewLookupCache(db *sql.DB) *LookupCache {
	if db == nil {
		db = DB
	}
	return &LookupCache{db: db, now: time.Now}
}

func (c *LookupCache) GetLookup(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := c.db.QueryRowContext(ctx,
		"SELECT value FROM lookup_cache WHERE key = ? AND expires_at > ?",
		key, c.now().Unix(),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (c *LookupCache) SetLookup(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO lookup_cache (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, value, c.now().Add(ttl).Unix())
	return err
}

// Prune deletes expired rows and returns how many were removed.
func (c *LookupCache) Prune(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, "DELETE FROM lookup_cache WHERE expires_at <= ?", c.now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *LookupCache) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lookup_cache").Scan(&n)
	return n, err
}
