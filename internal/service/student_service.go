package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"pae-asistencia/config"
	"pae-asistencia/internal/dto"
	"pae-asistencia/internal/model"
	"pae-asistencia/internal/render"
	"pae-asistencia/internal/repository"
	pkgerrors "pae-asistencia/pkg/errors"
	"pae-asistencia/pkg/metrics"
)

// ── 名单模块业务错误 ──

var (
	ErrStudentNotFound      = errors.New("uno o más estudiantes no existen")
	ErrEnrollmentCodeExists = errors.New("el código de matrícula ya está registrado")
	ErrGroupNotFound        = errors.New("el grupo no existe en la sede indicada")
	ErrInvalidStatus        = errors.New("estado de estudiante no válido")
)

// StudentService 学生名单业务接口
type StudentService interface {
	List(ctx context.Context, req *dto.StudentListRequest) ([]dto.StudentResponse, int64, error)
	Create(ctx context.Context, req *dto.CreateStudentRequest) (*dto.StudentResponse, error)
	ParseImportFile(reader io.Reader) ([]ImportStudentRow, error)
	ImportStudents(ctx context.Context, rows []ImportStudentRow) (*dto.ImportStudentResponse, error)
	ExportRoster(ctx context.Context, site string) (*bytes.Buffer, string, error)
	UpdateStatus(ctx context.Context, req *dto.UpdateStatusRequest) (*dto.BulkResultResponse, error)
	MoveGroup(ctx context.Context, req *dto.MoveGroupRequest) (*dto.BulkResultResponse, error)
	RenameGroup(ctx context.Context, req *dto.RenameGroupRequest) (*dto.BulkResultResponse, error)
}

// ImportStudentRow Excel 导入解析后的单行数据
type ImportStudentRow struct {
	Row            int
	FullName       string
	EnrollmentCode string
	Grade          string
	Group          string
	Site           string
	Status         string
}

type studentService struct {
	repo      *repository.Repository
	logger    *zap.Logger
	batchSize int
}

// NewStudentService 创建 StudentService 实例
func NewStudentService(cfg *config.ReportConfig, repo *repository.Repository, logger *zap.Logger) StudentService {
	size := cfg.ImportBatchSize
	if size <= 0 {
		size = 100
	}
	return &studentService{repo: repo, logger: logger, batchSize: size}
}

// ────────────────────── List / Create ──────────────────────

func (s *studentService) List(ctx context.Context, req *dto.StudentListRequest) ([]dto.StudentResponse, int64, error) {
	filter := model.StudentFilter{
		Site:   req.Site,
		Group:  req.Group,
		Status: model.StudentStatus(req.Status),
	}
	students, total, err := s.repo.Student.Page(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询学生名单失败", zap.Error(err))
		return nil, 0, fmt.Errorf("%w: %v", pkgerrors.ErrFetchFailed, err)
	}

	list := make([]dto.StudentResponse, 0, len(students))
	for i := range students {
		list = append(list, toStudentResponse(&students[i]))
	}
	return list, total, nil
}

func (s *studentService) Create(ctx context.Context, req *dto.CreateStudentRequest) (*dto.StudentResponse, error) {
	student := &model.Student{
		FullName:       strings.TrimSpace(req.FullName),
		EnrollmentCode: strings.TrimSpace(req.EnrollmentCode),
		Grade:          strings.TrimSpace(req.Grade),
		Group:          strings.TrimSpace(req.Group),
		Site:           strings.TrimSpace(req.Site),
		Status:         model.StudentActive,
	}
	if err := s.repo.Student.Create(ctx, student); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrEnrollmentCodeExists
		}
		s.logger.Error("创建学生失败", zap.Error(err))
		return nil, err
	}
	resp := toStudentResponse(student)
	return &resp, nil
}

// ────────────────────── ParseImportFile ──────────────────────

const maxImportRows = 5000

var (
	ErrImportNoData      = fmt.Errorf("%w: el archivo no tiene filas de datos (la primera fila es el encabezado)", pkgerrors.ErrValidationFailed)
	ErrImportTooManyRows = fmt.Errorf("%w: el archivo supera el máximo de %d filas", pkgerrors.ErrValidationFailed, maxImportRows)
	ErrImportBadHeader   = fmt.Errorf("%w: faltan columnas obligatorias (nombre, código, grado, grupo, sede)", pkgerrors.ErrValidationFailed)
	ErrImportUnreadable  = fmt.Errorf("%w: no se pudo leer el archivo Excel", pkgerrors.ErrValidationFailed)
)

// ParseImportFile 解析导入 Excel 文件，返回解析后的行数据；任何写入之前完成

func (s *studentService) ParseImportFile(reader io.Reader) ([]ImportStudentRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportUnreadable, err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportUnreadable, err)
	}

	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	// 解析表头（支持灵活列序）
	colIndex := parseHeaderIndex(excelRows[0])
	for _, required := range []string{"name", "code", "grade", "group", "site"} {
		if colIndex[required] < 0 {
			return nil, ErrImportBadHeader
		}
	}

	cellAt := func(row []string, key string) string {
		if idx := colIndex[key]; idx >= 0 && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var rows []ImportStudentRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := ImportStudentRow{
			Row:            i + 1,
			FullName:       cellAt(row, "name"),
			EnrollmentCode: cellAt(row, "code"),
			Grade:          cellAt(row, "grade"),
			Group:          cellAt(row, "group"),
			Site:           cellAt(row, "site"),
			Status:         strings.ToLower(cellAt(row, "status")),
		}

		// 跳过全空行
		if item.FullName == "" && item.EnrollmentCode == "" && item.Group == "" && item.Site == "" {
			continue
		}

		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}

	return rows, nil
}

// parseHeaderIndex 解析 Excel 表头，返回列名 -> 列索引映射
func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		"name":   -1,
		"code":   -1,
		"grade":  -1,
		"group":  -1,
		"site":   -1,
		"status": -1,
	}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "nombre", "name", "nombre completo", "full_name":
			idx["name"] = i
		case "codigo", "código", "matricula", "matrícula", "enrollment_code":
			idx["code"] = i
		case "grado", "grade":
			idx["grade"] = i
		case "grupo", "group":
			idx["group"] = i
		case "sede", "site":
			idx["site"] = i
		case "estado", "status":
			idx["status"] = i
		}
	}
	return idx
}

// ────────────────────── ImportStudents ──────────────────────

const msgPartialWrite = "Procesado con algunos errores"

// ═══════════════════════════════════════════════════════════
// ImportStudents 批量导入名单
// ═══════════════════════════════════════════════════════════
//
// 阶段：
//  1. 行级预校验（必填字段、状态值、文件内重复编码），不接触数据库
//  2. 通过校验的行按 batchSize 分批 upsert
//  3. 某批失败只计数，继续后续批次；已写入的批次不回滚
//
// 任何批次失败时返回 message=「Procesado con algunos errores」，不返回 error。

func (s *studentService) ImportStudents(ctx context.Context, rows []ImportStudentRow) (*dto.ImportStudentResponse, error) {
	resp := &dto.ImportStudentResponse{Total: len(rows)}

	// 第一阶段：数据预校验
	seen := make(map[string]int, len(rows))
	valid := make([]model.Student, 0, len(rows))
	for _, row := range rows {
		if row.FullName == "" || row.EnrollmentCode == "" || row.Group == "" || row.Site == "" {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportRowError{Row: row.Row, Reason: "campos obligatorios vacíos"})
			continue
		}
		status := model.StudentActive
		if row.Status != "" {
			status = parseImportStatus(row.Status)
			if !status.Valid() {
				resp.Failed++
				resp.Errors = append(resp.Errors, dto.ImportRowError{Row: row.Row, Reason: fmt.Sprintf("estado no válido: %s", row.Status)})
				continue
			}
		}
		if first, dup := seen[row.EnrollmentCode]; dup {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportRowError{
				Row: row.Row, Reason: fmt.Sprintf("código %s repetido (fila %d)", row.EnrollmentCode, first),
			})
			continue
		}
		seen[row.EnrollmentCode] = row.Row

		valid = append(valid, model.Student{
			FullName:       row.FullName,
			EnrollmentCode: row.EnrollmentCode,
			Grade:          row.Grade,
			Group:          row.Group,
			Site:           row.Site,
			Status:         status,
		})
	}

	// 第二阶段：分批写入
	result := runBatches(ctx, valid, s.batchSize, func(ctx context.Context, batch []model.Student) error {
		err := s.repo.Student.UpsertBatch(ctx, batch)
		metrics.ObserveBatch("import_students", err)
		return err
	})
	resp.Batches = result.batches
	resp.FailedBatches = result.failedBatches
	resp.Success = result.applied
	resp.Failed += result.rejected

	resp.Message = "Importación completada"
	if resp.Failed > 0 {
		resp.Message = msgPartialWrite
	}
	if result.err != nil {
		s.logger.Warn("批量导入部分批次失败",
			zap.Int("total", resp.Total),
			zap.Int("success", resp.Success),
			zap.Int("failed_batches", resp.FailedBatches),
			zap.Error(result.err),
		)
	} else {
		s.logger.Info("批量导入完成", zap.Int("total", resp.Total), zap.Int("success", resp.Success))
	}

	return resp, nil
}

func parseImportStatus(v string) model.StudentStatus {
	switch v {
	case "activo", "activa", "active":
		return model.StudentActive
	case "inactivo", "inactiva", "inactive", "retirado", "retirada":
		return model.StudentInactive
	default:
		return model.StudentStatus(v)
	}
}

// batchResult 分批写入结果
type batchResult struct {
	batches       int
	failedBatches int
	applied       int
	rejected      int
	// err 为 nil 或 ErrPartialWrite 与各批次错误的合并
	err error
}

// runBatches 固定大小分批执行；单批失败不终止后续批次
func runBatches[T any](ctx context.Context, items []T, size int, fn func(context.Context, []T) error) batchResult {
	var res batchResult
	var errs []error
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]
		res.batches++
		if err := fn(ctx, batch); err != nil {
			res.failedBatches++
			res.rejected += len(batch)
			errs = append(errs, fmt.Errorf("lote %d (%d-%d): %w", res.batches, start+1, end, err))
			continue
		}
		res.applied += len(batch)
	}
	if len(errs) > 0 {
		res.err = errors.Join(append([]error{pkgerrors.ErrPartialWrite}, errs...)...)
	}
	return res
}

// ────────────────────── ExportRoster ──────────────────────

// ExportRoster 导出名单，列与导入模板一致，可直接回传导入
func (s *studentService) ExportRoster(ctx context.Context, site string) (*bytes.Buffer, string, error) {
	students, err := s.repo.Student.List(ctx, model.StudentFilter{Site: site})
	if err != nil {
		s.logger.Error("查询学生名单失败", zap.Error(err))
		return nil, "", fmt.Errorf("%w: %v", pkgerrors.ErrFetchFailed, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Estudiantes"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#C8E6C9"}, Pattern: 1},
	})

	header := []interface{}{"nombre", "codigo", "grado", "grupo", "sede", "estado"}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}
	f.SetCellStyle(sheetName, "A1", "F1", headerStyle)
	f.SetColWidth(sheetName, "A", "A", 36)
	f.SetColWidth(sheetName, "B", "F", 16)

	for i, st := range students {
		row := []interface{}{st.FullName, st.EnrollmentCode, st.Grade, st.Group, st.Site, string(st.Status)}
		ref, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, ref, &row); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	return buf, render.RosterFilename(site), nil
}

// ────────────────────── 批量状态 / 调班 / 改名 ──────────────────────

func (s *studentService) UpdateStatus(ctx context.Context, req *dto.UpdateStatusRequest) (*dto.BulkResultResponse, error) {
	to := model.StudentStatus(req.Status)
	if !to.Valid() {
		return nil, ErrInvalidStatus
	}

	ids := uniqueIDs(req.StudentIDs)
	students, err := s.repo.Student.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrFetchFailed, err)
	}
	if len(students) != len(ids) {
		return nil, ErrStudentNotFound
	}

	// 已处于目标状态的学生跳过
	var pending []string
	for _, st := range students {
		if st.Status.CanTransition(to) {
			pending = append(pending, st.StudentID)
		}
	}
	if len(pending) == 0 {
		return &dto.BulkResultResponse{}, nil
	}

	affected, err := s.repo.Student.UpdateStatus(ctx, pending, to)
	if err != nil {
		s.logger.Error("批量更新学生状态失败", zap.Error(err))
		return nil, err
	}
	s.logger.Info("批量更新学生状态", zap.String("status", string(to)), zap.Int64("affected", affected))
	return &dto.BulkResultResponse{Affected: affected}, nil
}

func (s *studentService) MoveGroup(ctx context.Context, req *dto.MoveGroupRequest) (*dto.BulkResultResponse, error) {
	ids := uniqueIDs(req.StudentIDs)
	students, err := s.repo.Student.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrFetchFailed, err)
	}
	if len(students) != len(ids) {
		return nil, ErrStudentNotFound
	}

	affected, err := s.repo.Student.MoveGroup(ctx, ids, strings.TrimSpace(req.Grade), strings.TrimSpace(req.Group))
	if err != nil {
		s.logger.Error("批量调班失败", zap.Error(err))
		return nil, err
	}
	return &dto.BulkResultResponse{Affected: affected}, nil
}

func (s *studentService) RenameGroup(ctx context.Context, req *dto.RenameGroupRequest) (*dto.BulkResultResponse, error) {
	affected, err := s.repo.Student.RenameGroup(ctx, req.Site, req.From, strings.TrimSpace(req.To))
	if err != nil {
		s.logger.Error("班级改名失败", zap.Error(err))
		return nil, err
	}
	if affected == 0 {
		return nil, ErrGroupNotFound
	}
	s.logger.Info("班级改名",
		zap.String("site", req.Site),
		zap.String("from", req.From),
		zap.String("to", req.To),
		zap.Int64("affected", affected),
	)
	return &dto.BulkResultResponse{Affected: affected}, nil
}

// ── 内部辅助方法 ──

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// toStudentResponse 将 model.Student 转换为 dto.StudentResponse
func toStudentResponse(st *model.Student) dto.StudentResponse {
	return dto.StudentResponse{
		ID:             st.StudentID,
		FullName:       st.FullName,
		EnrollmentCode: st.EnrollmentCode,
		Grade:          st.Grade,
		Group:          st.Group,
		Site:           st.Site,
		Status:         string(st.Status),
	}
}
