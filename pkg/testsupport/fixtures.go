package testsupport

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-ormform/pkg/mapping"
)

// School is the to-one target of Student and owns a student list.
type School struct {
	ID       int64      `orm:"pk"`
	Name     string     `orm:"length=50"`
	Students []*Student `orm:"rel=one-to-many"`
}

func (s *School) String() string { return s.Name }

// Course is the to-many target of Student.
type Course struct {
	ID    int64  `orm:"pk"`
	Title string `orm:"length=80"`
}

func (c *Course) String() string { return c.Title }

// Student exercises every built-in converter family.
type Student struct {
	ID              int64      `orm:"pk"`
	FullName        string     `orm:"length=255" doc:"Family and given name"`
	DOB             *time.Time `orm:"type=date"`
	Grade           string     `orm:"type=enum,enum=freshman|sophomore|junior|senior"`
	Active          bool       `orm:"default=true"`
	GPA             float64    `db:"gpa" orm:"nullable"`
	CurrentSchoolID *int64     `orm:"fk=school.id"`
	CurrentSchool   *School
	Courses         []*Course `orm:"rel=many-to-many"`
}

func (s *Student) String() string { return s.FullName }

// Device covers the dialect specific network and identifier types.
type Device struct {
	ID       int64  `orm:"pk"`
	Address  string `orm:"type=inet"`
	Hardware string `orm:"type=macaddr"`
	Serial   string `orm:"type=uuid"`
	Built    int    `orm:"type=year"`
	Slots    uint   `orm:"nullable"`
}

var (
	registerOnce sync.Once

	SchoolMapper  *mapping.StructMapper
	CourseMapper  *mapping.StructMapper
	StudentMapper *mapping.StructMapper
	DeviceMapper  *mapping.StructMapper
)

// Register maps the fixture models in the package registry. It is safe to
// call from every test.
func Register() {
	registerOnce.Do(func() {
		StudentMapper = mapping.MustRegister(Student{})
		SchoolMapper = mapping.MustRegister(School{})
		CourseMapper = mapping.MustRegister(Course{})
		DeviceMapper = mapping.MustRegister(Device{})
	})
}

// Fixture bundles sample rows and a counting session over them.
type Fixture struct {
	Schools  []*School
	Courses  []*Course
	Students []*Student
	Session  *MemorySession
}

// NewFixture returns fresh sample rows. Student 1 attends school 1 and takes
// courses 1 and 2; school 1 lists students 1 and 2.
func NewFixture() *Fixture {
	Register()
	schools := []*School{{ID: 1, Name: "Springfield Elementary"}, {ID: 2, Name: "Shelbyville High"}}
	courses := []*Course{{ID: 1, Title: "Algebra"}, {ID: 2, Title: "Biology"}, {ID: 3, Title: "Chemistry"}}
	dob := time.Date(2010, time.April, 1, 0, 0, 0, 0, time.UTC)
	schoolID := int64(1)
	students := []*Student{
		{ID: 1, FullName: "Bart Simpson", DOB: &dob, Grade: "junior", Active: true, CurrentSchoolID: &schoolID, CurrentSchool: schools[0], Courses: []*Course{courses[0], courses[1]}},
		{ID: 2, FullName: "Lisa Simpson", Grade: "senior", Active: true},
	}
	schools[0].Students = []*Student{students[0], students[1]}

	session := NewMemorySession()
	session.Put(SchoolMapper, toAny(schools)...)
	session.Put(CourseMapper, toAny(courses)...)
	session.Put(StudentMapper, toAny(students)...)
	return &Fixture{Schools: schools, Courses: courses, Students: students, Session: session}
}

func toAny[T any](rows []T) []any {
	out := make([]any, len(rows))
	for i, row := range rows {
		out[i] = row
	}
	return out
}

// MemorySession serves rows per mapper and counts queries.
type MemorySession struct {
	mu    sync.Mutex
	rows  map[mapping.Mapper][]any
	calls map[mapping.Mapper]int
	err   error
}

var _ mapping.Session = (*MemorySession)(nil)

// NewMemorySession returns an empty session.
func NewMemorySession() *MemorySession {
	return &MemorySession{rows: map[mapping.Mapper][]any{}, calls: map[mapping.Mapper]int{}}
}

// Put replaces the rows served for m.
func (s *MemorySession) Put(m mapping.Mapper, rows ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[m] = rows
}

// Fail makes every subsequent query return err.
func (s *MemorySession) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls returns how many times m was queried.
func (s *MemorySession) Calls(m mapping.Mapper) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[m]
}

func (s *MemorySession) All(ctx context.Context, m mapping.Mapper) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[m]++
	if s.err != nil {
		return nil, s.err
	}
	rows, ok := s.rows[m]
	if !ok {
		return nil, fmt.Errorf("testsupport: no rows for %s", m.Name())
	}
	return append([]any(nil), rows...), nil
}

// WriteGolden writes arbitrary data to a golden file when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
