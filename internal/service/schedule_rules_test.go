package service

import (
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/painel-aulas-api/internal/dto"
	"github.com/noah-isme/painel-aulas-api/internal/models"
)

func TestDeriveShift(t *testing.T) {
	cases := map[string]models.Shift{
		"":      models.ShiftMorning,
		"07:59": models.ShiftMorning,
		"7:30":  models.ShiftMorning,
		"12:00": models.ShiftAfternoon,
		"17:59": models.ShiftAfternoon,
		"18:00": models.ShiftEvening,
		"23:10": models.ShiftEvening,
		"xx:00": models.ShiftEvening,
	}
	for start, want := range cases {
		assert.Equal(t, want, DeriveShift(start), "start %q", start)
	}
}

func TestParseScheduleCSV(t *testing.T) {
	input := strings.Join([]string{
		"data,sala,turma,instrutor,uc,inicio,fim",
		"",
		`"10/03/2024","Lab 1","T1","Ana","Redes","13:30","17:30"`,
		"11/03/2024,Sala 2,T2,Bruno,Lógica",
		"12/03/2024,Sala 3,T3,Caio",
		"   ",
		" 13/03/2024 , Sala 4 , T4 , Dora , Banco de Dados , 19:00 ",
	}, "\n")

	rows, dropped, err := ParseScheduleCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	require.Len(t, rows, 3)

	assert.Equal(t, dto.ScheduleEntryInput{
		Date: "10/03/2024", Room: "Lab 1", Group: "T1", Instructor: "Ana", Subject: "Redes", StartTime: "13:30", EndTime: "17:30",
	}, rows[0])

	assert.Equal(t, "08:00", rows[1].StartTime)
	assert.Equal(t, "12:00", rows[1].EndTime)
	assert.Equal(t, "Lógica", rows[1].Subject)

	assert.Equal(t, "Banco de Dados", rows[2].Subject)
	assert.Equal(t, "19:00", rows[2].StartTime)
	assert.Equal(t, "12:00", rows[2].EndTime)
}

func TestParseScheduleCSVHandlesCRLF(t *testing.T) {
	rows, dropped, err := ParseScheduleCSV(strings.NewReader("h\r\n01/02/2024,a,b,c,d,09:00,10:00\r\n"))
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.Len(t, rows, 1)
	assert.Equal(t, "10:00", rows[0].EndTime)
}

func TestFilterScheduleDefaultsToToday(t *testing.T) {
	today := time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)
	entries := []models.ScheduleEntry{
		{ID: "a", Date: "10/03/2024", StartTime: "19:00"},
		{ID: "b", Date: "09/03/2024", StartTime: "07:00"},
		{ID: "c", Date: "10/03/2024", StartTime: "08:00"},
	}

	got, err := FilterSchedule(entries, models.ScheduleFilter{}, today)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestFilterScheduleRange(t *testing.T) {
	entries := []models.ScheduleEntry{
		{ID: "feb", Date: "01/02/2024", StartTime: "08:00"},
		{ID: "mid", Date: "15/01/2024", StartTime: "08:00"},
		{ID: "first", Date: "01/01/2024", StartTime: "10:00"},
		{ID: "bad", Date: "not a date", StartTime: "06:00"},
	}

	got, err := FilterSchedule(entries, models.ScheduleFilter{Start: "2024-01-01", End: "2024-01-31"}, time.Now())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "mid", got[0].ID)
	assert.Equal(t, "first", got[1].ID)

	got, err = FilterSchedule(entries, models.ScheduleFilter{Start: "15/01/2024"}, time.Now())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFilterScheduleRejectsBadBound(t *testing.T) {
	_, err := FilterSchedule(nil, models.ScheduleFilter{End: "31-01-2024"}, time.Now())
	assert.Error(t, err)
}

func TestFilterScheduleNeverReturnsNil(t *testing.T) {
	got, err := FilterSchedule(nil, models.ScheduleFilter{}, time.Now())
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestScheduleValidations(t *testing.T) {
	v := validator.New()
	RegisterScheduleValidations(v)

	ok := dto.ScheduleEntryInput{Date: "1/2/2024", StartTime: "7:05", EndTime: "23:59"}
	assert.NoError(t, v.Struct(ok))

	badDate := dto.ScheduleEntryInput{Date: "2024-02-01"}
	assert.Error(t, v.Struct(badDate))

	badTime := dto.ScheduleEntryInput{Date: "01/02/2024", StartTime: "24:00"}
	assert.Error(t, v.Struct(badTime))
}

func TestFilterScheduleTodayMatchesUnpaddedDates(t *testing.T) {
	today := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	entries := []models.ScheduleEntry{
		{ID: "legacy", Date: "5/3/2024", StartTime: "08:00"},
		{ID: "padded", Date: "05/03/2024", StartTime: "07:00"},
		{ID: "other", Date: "6/3/2024", StartTime: "06:00"},
	}

	got, err := FilterSchedule(entries, models.ScheduleFilter{}, today)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "padded", got[0].ID)
	assert.Equal(t, "legacy", got[1].ID)
}

func TestNormalizeSpreadsheetCells(t *testing.T) {
	dates := map[string]string{
		"5/3/2024":   "05/03/2024",
		"2024-03-10": "10/03/2024",
		"10/03/2024": "10/03/2024",
		"amanhã":     "amanhã",
	}
	for in, want := range dates {
		assert.Equal(t, want, normalizeDate(in), "date %q", in)
	}

	clocks := map[string]string{
		"8:00":     "08:00",
		"08:00:00": "08:00",
		"7:30:15":  "07:30",
		"19:00":    "19:00",
		"":         "",
	}
	for in, want := range clocks {
		assert.Equal(t, want, normalizeClock(in), "clock %q", in)
	}
}
