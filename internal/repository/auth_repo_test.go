package repository

import (
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"

	"smart_climate/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func newUserMock(t *testing.T) (*UserSQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewUserSQLite(db), mock
}

func TestUserSQLite_Create(t *testing.T) {
	repo, mock := newUserMock(t)
	mock.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
		WithArgs("alice", "bcrypt-hash").
		WillReturnResult(sqlmock.NewResult(3, 1))

	id, err := repo.Create(ctx(t), "alice", "bcrypt-hash")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != 3 {
		t.Fatalf("id = %d, want 3", id)
	}
}

func TestUserSQLite_CreateDuplicate(t *testing.T) {
	repo, mock := newUserMock(t)
	mock.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
		WithArgs("alice", "h").
		WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: users.username (2067)"))

	_, err := repo.Create(ctx(t), "alice", "h")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestUserSQLite_CreateFailures(t *testing.T) {
	cases := map[string]struct {
		expect  func(sqlmock.Sqlmock)
		wantMsg string
	}{
		"exec error": {
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertUserSQL)).WillReturnError(errors.New("disk I/O error"))
			},
			wantMsg: "insert operator",
		},
		"no insert id": {
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
					WillReturnResult(sqlmock.NewErrorResult(errors.New("no id")))
			},
			wantMsg: "id",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			repo, mock := newUserMock(t)
			tc.expect(mock)
			id, err := repo.Create(ctx(t), "bob", "h")
			if err == nil || !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("expected error containing %q, got %v", tc.wantMsg, err)
			}
			if errors.Is(err, ErrUsernameTaken) {
				t.Fatalf("unexpected ErrUsernameTaken: %v", err)
			}
			if id != 0 {
				t.Fatalf("id = %d on error", id)
			}
		})
	}
}

func TestUserSQLite_GetByUsername(t *testing.T) {
	repo, mock := newUserMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectUserSQL)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash"}).AddRow(7, "alice", "h"))
	mock.ExpectQuery(regexp.QuoteMeta(selectUserSQL)).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(selectUserSQL)).
		WithArgs("bob").
		WillReturnError(errors.New("database is locked"))

	u, err := repo.GetByUsername(ctx(t), "alice")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if *u != (models.User{ID: 7, Username: "alice", PasswordHash: "h"}) {
		t.Fatalf("unexpected user %+v", u)
	}

	u, err = repo.GetByUsername(ctx(t), "ghost")
	if err != nil || u != nil {
		t.Fatalf("missing operator: got (%+v, %v), want (nil, nil)", u, err)
	}

	if _, err := repo.GetByUsername(ctx(t), "bob"); err == nil || !strings.Contains(err.Error(), "lookup operator") {
		t.Fatalf("expected lookup error, got %v", err)
	}
}
