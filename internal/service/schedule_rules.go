package service

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/painel-aulas-api/internal/dto"
	"github.com/noah-isme/painel-aulas-api/internal/models"
)

const (
	defaultImportStart = "08:00"
	defaultImportEnd   = "12:00"
	minImportFields    = 5
	isoDateLayout      = "2006-01-02"
	lenientDateLayout  = "2/1/2006"
)

var (
	hhmmPattern     = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)
	leadingDigitsRx = regexp.MustCompile(`^\s*[+-]?\d+`)
)

// RegisterScheduleValidations installs the hhmm and ddmmyyyy rules used by schedule DTOs.
func RegisterScheduleValidations(v *validator.Validate) {
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return hhmmPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("ddmmyyyy", func(fl validator.FieldLevel) bool {
		_, ok := parseEntryDate(fl.Field().String())
		return ok
	})
}

// DeriveShift buckets a start time: before 12h morning, before 18h afternoon, evening otherwise.
// A missing start time is morning; an hour that cannot be read is evening.
func DeriveShift(start string) models.Shift {
	start = strings.TrimSpace(start)
	if start == "" {
		return models.ShiftMorning
	}
	hourPart := strings.SplitN(start, ":", 2)[0]
	digits := leadingDigitsRx.FindString(hourPart)
	hour, err := strconv.Atoi(strings.TrimSpace(digits))
	if err != nil {
		return models.ShiftEvening
	}
	switch {
	case hour < 12:
		return models.ShiftMorning
	case hour < 18:
		return models.ShiftAfternoon
	default:
		return models.ShiftEvening
	}
}

// ParseScheduleCSV reads the spreadsheet export format. The first non-blank line is a
// header. Rows with fewer than five fields are dropped and counted, never reported.
func ParseScheduleCSV(r io.Reader) ([]dto.ScheduleEntryInput, int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		rows       []dto.ScheduleEntryInput
		dropped    int
		headerSeen bool
	)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !headerSeen {
			headerSeen = true
			continue
		}

		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = stripQuotes(strings.TrimSpace(fields[i]))
		}
		if len(fields) < minImportFields {
			dropped++
			continue
		}

		row := dto.ScheduleEntryInput{
			Date:       normalizeDate(fields[0]),
			Room:       fields[1],
			Group:      fields[2],
			Instructor: fields[3],
			Subject:    fields[4],
			StartTime:  defaultImportStart,
			EndTime:    defaultImportEnd,
		}
		if len(fields) > 5 && fields[5] != "" {
			row.StartTime = normalizeClock(fields[5])
		}
		if len(fields) > 6 && fields[6] != "" {
			row.EndTime = normalizeClock(fields[6])
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read schedule csv: %w", err)
	}
	return rows, dropped, nil
}

// normalizeClock drops spreadsheet seconds and zero-pads single-digit hours so
// string order stays chronological.
func normalizeClock(value string) string {
	value = strings.TrimSpace(value)
	if parts := strings.Split(value, ":"); len(parts) == 3 && len(parts[2]) == 2 {
		value = parts[0] + ":" + parts[1]
	}
	if len(value) == 4 && value[1] == ':' {
		return "0" + value
	}
	return value
}

// normalizeDate rewrites D/M/YYYY and YYYY-MM-DD as DD/MM/YYYY. Anything else is
// returned unchanged for the validator to reject.
func normalizeDate(value string) string {
	value = strings.TrimSpace(value)
	for _, layout := range []string{lenientDateLayout, isoDateLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(models.DateLayout)
		}
	}
	return value
}

func stripQuotes(s string) string {
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}

// FilterSchedule applies the date window and orders by start time. Without bounds
// only entries dated today are returned.
func FilterSchedule(entries []models.ScheduleEntry, filter models.ScheduleFilter, today time.Time) ([]models.ScheduleEntry, error) {
	out := make([]models.ScheduleEntry, 0, len(entries))

	if filter.Empty() {
		todayDay := civilDay(today)
		for _, entry := range entries {
			if day, ok := parseEntryDate(entry.Date); ok && day == todayDay {
				out = append(out, entry)
			}
		}
	} else {
		start, end := 0, int(^uint(0)>>1)
		if filter.Start != "" {
			day, ok := parseFilterBound(filter.Start)
			if !ok {
				return nil, fmt.Errorf("invalid start date %q", filter.Start)
			}
			start = day
		}
		if filter.End != "" {
			day, ok := parseFilterBound(filter.End)
			if !ok {
				return nil, fmt.Errorf("invalid end date %q", filter.End)
			}
			end = day
		}
		for _, entry := range entries {
			day, ok := parseEntryDate(entry.Date)
			if !ok {
				continue
			}
			if day >= start && day <= end {
				out = append(out, entry)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

// parseEntryDate reads DD/MM/YYYY, tolerating missing zero padding, as a yyyymmdd ordinal.
func parseEntryDate(value string) (int, bool) {
	t, err := time.Parse(lenientDateLayout, strings.TrimSpace(value))
	if err != nil {
		return 0, false
	}
	return civilDay(t), true
}

func parseFilterBound(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(isoDateLayout, value); err == nil {
		return civilDay(t), true
	}
	return parseEntryDate(value)
}

func civilDay(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}
