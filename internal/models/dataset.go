package models

// Shift is the coarse time-of-day bucket of a class, derived from its start time.
type Shift string

const (
	ShiftMorning   Shift = "Matutino"
	ShiftAfternoon Shift = "Vespertino"
	ShiftEvening   Shift = "Noturno"
)

// MediaType identifies an advertisement creative.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// Extension returns the stored file extension for the media type.
func (m MediaType) Extension() string {
	if m == MediaTypeVideo {
		return "mp4"
	}
	return "png"
}

// DateLayout is the DD/MM/YYYY layout used by stored entries and CSV imports.
const DateLayout = "02/01/2006"

// ScheduleEntry is one class ("aula"). Field names follow the persisted document.
type ScheduleEntry struct {
	ID         string `json:"id"`
	Date       string `json:"data"`
	Room       string `json:"sala"`
	Group      string `json:"turma"`
	Instructor string `json:"instrutor"`
	Subject    string `json:"unidade_curricular"`
	StartTime  string `json:"inicio"`
	EndTime    string `json:"fim"`
	Shift      Shift  `json:"turno,omitempty"`
}

// Advertisement is one rotating banner ("anúncio").
type Advertisement struct {
	ID        string    `json:"id"`
	MediaType MediaType `json:"type"`
	Src       string    `json:"src"`
}

// Snapshot is the whole dataset and the unit of persistence.
type Snapshot struct {
	ScheduleEntries []ScheduleEntry `json:"aulas"`
	Advertisements  []Advertisement `json:"anuncios"`
}

// EmptySnapshot returns a snapshot whose collections serialize as [].
func EmptySnapshot() Snapshot {
	return Snapshot{ScheduleEntries: []ScheduleEntry{}, Advertisements: []Advertisement{}}
}

// Clone returns a deep copy so candidates can be mutated without touching the original.
func (s Snapshot) Clone() Snapshot {
	out := EmptySnapshot()
	out.ScheduleEntries = append(out.ScheduleEntries, s.ScheduleEntries...)
	out.Advertisements = append(out.Advertisements, s.Advertisements...)
	return out
}

// Normalize replaces nil collections with empty ones.
func (s *Snapshot) Normalize() {
	if s.ScheduleEntries == nil {
		s.ScheduleEntries = []ScheduleEntry{}
	}
	if s.Advertisements == nil {
		s.Advertisements = []Advertisement{}
	}
}

// ScheduleFilter narrows the schedule view. Bounds accept YYYY-MM-DD or DD/MM/YYYY.
type ScheduleFilter struct {
	Start string
	End   string
}

// Empty reports whether no bound was supplied.
func (f ScheduleFilter) Empty() bool {
	return f.Start == "" && f.End == ""
}
