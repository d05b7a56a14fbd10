package sql

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mailgallery/backend/internal/domain"
	"mailgallery/backend/internal/storage"
)

// Store SQL 数据库存储实现（支持 MySQL 5.7+ 和 PostgreSQL）
//
// MySQL DSN 需要带 parseTime=true，否则时间列无法扫描为 time.Time。
type Store struct {
	db         *sql.DB
	driverName string // "mysql" or "postgres"
}

var _ storage.Store = (*Store)(nil)

// Options 连接池参数
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewStore 打开数据库连接、检查连通性并执行迁移
func NewStore(driverName, dsn string, opts Options) (*Store, error) {
	if driverName != "mysql" && driverName != "postgres" {
		return nil, fmt.Errorf("unsupported database driver: %s (supported: mysql, postgres)", driverName)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := NewStoreWithDB(db, driverName)
	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// NewStoreWithDB 使用已有连接创建存储，不执行迁移
func NewStoreWithDB(db *sql.DB, driverName string) *Store {
	return &Store{db: db, driverName: driverName}
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Health 检查数据库健康状态
func (s *Store) Health() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.Ping()
}

// DB 返回底层连接，供健康检查使用
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate 使用 GORM AutoMigrate 创建表和 (user_id, message_id) 唯一索引
func (s *Store) Migrate() error {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	dialector, err := dialectorFor(s.driverName, s.db)
	if err != nil {
		return err
	}

	gormDB, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize GORM: %w", err)
	}

	return gormDB.AutoMigrate(
		&domain.User{},
		&domain.GmailToken{},
		&domain.Email{},
		&domain.Brand{},
	)
}

// dialectorFor 返回与驱动对应的 GORM 方言，复用已有连接
func dialectorFor(driverName string, db *sql.DB) (gorm.Dialector, error) {
	switch driverName {
	case "mysql":
		return mysql.New(mysql.Config{Conn: db}), nil
	case "postgres":
		return postgres.New(postgres.Config{Conn: db}), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driverName)
	}
}

// rebind 将 ? 占位符按数据库类型改写，PostgreSQL 使用 $1, $2 ...
func (s *Store) rebind(query string) string {
	if s.driverName != "postgres" {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// likeOperator PostgreSQL 的 LIKE 区分大小写，搜索时使用 ILIKE 与 MySQL 保持一致
func (s *Store) likeOperator() string {
	if s.driverName == "postgres" {
		return "ILIKE"
	}
	return "LIKE"
}

func (s *Store) isPostgres() bool {
	return s.driverName == "postgres"
}
