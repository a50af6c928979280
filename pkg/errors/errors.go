package errors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ── 错误分类 ──
//
// 所有失败只终止触发它的那一次操作，进程保持可用。

var (
	// ErrFetchFailed 读取学生名单或出勤记录失败（只上报一次，不重试）
	ErrFetchFailed = errors.New("no fue posible consultar los datos")

	// ErrAggregationFailed 汇总被中止，不返回部分结果
	ErrAggregationFailed = errors.New("no fue posible generar el reporte")

	// ErrPartialWrite 批量写入部分批次失败，已写入的批次不回滚
	ErrPartialWrite = errors.New("procesado con algunos errores")

	// ErrValidationFailed 导入文件缺少必要列或为空，写入前即中止
	ErrValidationFailed = errors.New("el archivo no es válido")
)

// pgUniqueViolation PostgreSQL 唯一约束冲突 SQLSTATE
const pgUniqueViolation = "23505"

// IsUniqueViolation 判断底层驱动错误是否为唯一约束冲突
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}
