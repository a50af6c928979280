package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsTable 版本记录表，与其他服务共用数据库时不冲突
const MigrationsTable = "pae_schema_migrations"

// PAETables 迁移创建的业务表
var PAETables = []string{"students", "attendance_events", "schedule_items"}

// RunMigrations 应用所有未执行的迁移
// 数据库版本高于本程序内嵌的最新版本时只告警，不回滚
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	latest, err := embeddedVersion(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("读取内嵌迁移失败: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("加载迁移文件失败: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		return fmt.Errorf("创建迁移驱动失败: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("读取迁移版本失败: %w", err)
	}
	switch {
	case dirty:
		logger.Warn("数据库迁移处于 dirty 状态，需人工处理", zap.Uint("version", version))
	case version > latest:
		logger.Warn("数据库版本高于程序内嵌迁移", zap.Uint("version", version), zap.Uint("embedded", latest))
	default:
		logger.Info("数据库迁移完成",
			zap.Uint("version", version),
			zap.String("table", MigrationsTable),
			zap.Strings("tables", PAETables),
		)
	}
	return nil
}

// embeddedVersion 内嵌 up 迁移中的最大版本号，文件名形如 000001_init.up.sql
func embeddedVersion(fsys fs.FS, dir string) (uint, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return 0, err
	}
	var latest uint
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			return 0, fmt.Errorf("迁移文件名缺少版本号: %s", name)
		}
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("迁移文件名版本号无效: %s", name)
		}
		if uint(v) > latest {
			latest = uint(v)
		}
	}
	if latest == 0 {
		return 0, errors.New("未找到 up 迁移")
	}
	return latest, nil
}
