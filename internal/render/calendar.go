package render

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"pae-asistencia/internal/model"
	"pae-asistencia/internal/report"
)

// CalendarFilename 当日供餐时段的 .ics 文件名
func CalendarFilename(date time.Time) string {
	return fmt.Sprintf("horario_pae_%s.ics", report.FormatDay(date))
}

// RenderScheduleCalendar 将某日供餐时段导出为 iCalendar
// 时段的 "HH:MM" 按 loc 解释
func RenderScheduleCalendar(date time.Time, items []model.ScheduleItem, loc *time.Location, now time.Time) (string, error) {
	if loc == nil {
		loc = time.UTC
	}
	day := report.DayOf(date)

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//pae-asistencia//horario//ES")
	cal.SetName("Horario PAE " + report.FormatDay(day))
	cal.SetTimezoneId(loc.String())

	for _, it := range items {
		start, err := clockOn(day, it.StartTime, loc)
		if err != nil {
			return "", err
		}
		end, err := clockOn(day, it.EndTime, loc)
		if err != nil {
			return "", err
		}

		uid := it.ScheduleItemID
		if uid == "" {
			uid = fmt.Sprintf("%s-%d", report.FormatDay(day), it.Position)
		}
		evt := cal.AddEvent(uid + "@pae-asistencia")
		evt.SetDtStampTime(now.UTC())
		evt.SetStartAt(start)
		evt.SetEndAt(end)
		evt.SetSummary("Servicio PAE: " + it.GroupLabel)
		if note := strings.TrimSpace(it.Note); note != "" {
			evt.SetDescription(note)
		}
	}
	return cal.Serialize(), nil
}

func clockOn(day time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: hora no válida %q", ErrRenderFailed, hhmm)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}
