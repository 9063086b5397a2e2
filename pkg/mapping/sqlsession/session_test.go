package sqlsession

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/goliatone/go-ormform/pkg/testsupport"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

func TestSelectQuery(t *testing.T) {
	testsupport.Register()

	query, props := SelectQuery(testsupport.CourseMapper)
	if query != `SELECT "id", "title" FROM "course" ORDER BY "id"` {
		t.Fatalf("unexpected query %q", query)
	}
	if len(props) != 2 {
		t.Fatalf("expected 2 scalar properties, got %d", len(props))
	}

	query, _ = SelectQuery(testsupport.StudentMapper)
	want := `SELECT "id", "full_name", "dob", "grade", "active", "gpa", "current_school_id" FROM "student" ORDER BY "id"`
	if query != want {
		t.Fatalf("relationships must not be selected:\n got %s\nwant %s", query, want)
	}
}

func TestSession_AllBuildsRows(t *testing.T) {
	testsupport.Register()
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "title" FROM "course" ORDER BY "id"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).
			AddRow(int64(1), "Algebra").
			AddRow(int64(2), []byte("Biology")))

	rows, err := New(db).All(context.Background(), testsupport.CourseMapper)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	second, ok := rows[1].(*testsupport.Course)
	if !ok || second.ID != 2 || second.Title != "Biology" {
		t.Fatalf("unexpected row %#v", rows[1])
	}
}

func TestSession_AllNullableColumns(t *testing.T) {
	testsupport.Register()
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT .* FROM "student"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "dob", "grade", "active", "gpa", "current_school_id"}).
			AddRow(int64(3), "Milhouse", nil, "junior", true, 2.5, nil))

	rows, err := New(db).All(context.Background(), testsupport.StudentMapper)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	student := rows[0].(*testsupport.Student)
	if student.DOB != nil || student.CurrentSchoolID != nil || student.GPA != 2.5 || !student.Active {
		t.Fatalf("unexpected student %+v", student)
	}
}

func TestSession_AllQueryError(t *testing.T) {
	testsupport.Register()
	db, mock := newMockDB(t)
	boom := errors.New("relation does not exist")
	mock.ExpectQuery(`SELECT .* FROM "school"`).WillReturnError(boom)

	_, err := New(db).All(context.Background(), testsupport.SchoolMapper)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped driver error, got %v", err)
	}
}
