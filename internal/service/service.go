package service

import (
	"go.uber.org/zap"

	"pae-asistencia/config"
	"pae-asistencia/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Report     ReportService
	Export     ExportService
	Student    StudentService
	Attendance AttendanceService
	Schedule   ScheduleService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	logger *zap.Logger,
) *Service {
	reports := NewReportService(&cfg.Report, repo, logger)
	return &Service{
		Report:     reports,
		Export:     NewExportService(&cfg.Report, reports, logger),
		Student:    NewStudentService(&cfg.Report, repo, logger),
		Attendance: NewAttendanceService(&cfg.Report, repo, logger),
		Schedule:   NewScheduleService(&cfg.Report, repo, logger),
	}
}
