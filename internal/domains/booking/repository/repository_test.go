package repository_test

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"hotel/infras/otel/mocks"
	"hotel/infras/postgres"
	"hotel/internal/domains/booking/model"
	"hotel/internal/domains/booking/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	lockQuery         = `SELECT bookings\.id, .* FROM bookings\s+WHERE \(bookings\.id = \$1\)\s+FOR UPDATE`
	expireQuery       = `UPDATE bookings SET is_deleted = \$1\s+WHERE \(bookings\.id = \$2 AND bookings\.is_deleted = \$3 AND bookings\.check_out_date < \$4\)`
	reminderSentQuery = `UPDATE bookings SET check_in_reminder_sent = \$1\s+WHERE \(bookings\.id = \$2 AND bookings\.check_in_reminder_sent = \$3\)`
	listExpiredQuery  = `SELECT bookings\.id, .* FROM bookings\s+WHERE \(bookings\.is_deleted = \$1 AND bookings\.check_out_date < \$2 AND bookings\.id > \$3\)\s+ORDER BY bookings\.id ASC LIMIT \$4`
	findByEmailQuery  = `SELECT bookings\.id, .*branches\.name AS branch_name.* FROM bookings JOIN branches ON branches\.id = bookings\.branch_id JOIN rooms ON rooms\.id = bookings\.room_id\s+` +
		`WHERE \(\(LOWER\(bookings\.guest_first_name\) = LOWER\(\$1\) AND LOWER\(bookings\.guest_last_name\) = LOWER\(\$2\) AND LOWER\(bookings\.email\) = LOWER\(\$3\)\)\)\s+` +
		`ORDER BY bookings\.check_in_date DESC`
	findByPhoneQuery = `SELECT bookings\.id, .* FROM bookings JOIN .*\s+` +
		`WHERE \(bookings\.is_deleted = \$1 AND \(LOWER\(bookings\.guest_first_name\) = LOWER\(\$2\) AND LOWER\(bookings\.guest_last_name\) = LOWER\(\$3\) AND bookings\.phone_number = \$4\)\)\s+` +
		`ORDER BY bookings\.check_in_date DESC`
)

var bookingColumns = []string{"id", "guest_first_name", "guest_last_name", "phone_number", "branch_id", "room_id", "check_in_date", "check_out_date", "is_deleted"}

func newRepository(t *testing.T) (repository.Booking, sqlmock.Sqlmock, *sqlx.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	conn := sqlx.NewDb(db, "postgres")

	return repository.New(&postgres.Connection{Read: conn, Write: conn}, mocks.NewOtel()), mock, conn
}

func begin(t *testing.T, mock sqlmock.Sqlmock, conn *sqlx.DB) *sqlx.Tx {
	t.Helper()

	mock.ExpectBegin()

	tx, err := conn.Beginx()
	require.NoError(t, err)

	return tx
}

func TestLockTx(t *testing.T) {
	checkIn := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		rows    *sqlmock.Rows
		wantErr error
	}{
		{
			name: "locks the booking row",
			rows: sqlmock.NewRows(bookingColumns).
				AddRow("b-1", "Jane", "Doe", "0712345678", "br-1", "r-101", checkIn, checkIn.AddDate(0, 0, 4), false),
		},
		{
			name:    "no such booking",
			rows:    sqlmock.NewRows(bookingColumns),
			wantErr: model.ErrBookingNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, conn := newRepository(t)
			tx := begin(t, mock, conn)

			mock.ExpectPrepare(lockQuery).
				ExpectQuery().
				WithArgs("b-1").
				WillReturnRows(tt.rows)

			booking, err := repo.LockTx(context.Background(), tx, repository.ByID("b-1"))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, "r-101", booking.RoomID)
				assert.Equal(t, checkIn, booking.CheckInDate)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestLockTx_InBranch(t *testing.T) {
	repo, mock, conn := newRepository(t)
	tx := begin(t, mock, conn)

	mock.ExpectPrepare(`SELECT bookings\.id, .* FROM bookings\s+WHERE \(bookings\.id = \$1 AND bookings\.branch_id = \$2\)\s+FOR UPDATE`).
		ExpectQuery().
		WithArgs("b-1", "br-2").
		WillReturnRows(sqlmock.NewRows(bookingColumns))

	_, err := repo.LockTx(context.Background(), tx, repository.InBranch("b-1", "br-2"))

	assert.ErrorIs(t, err, model.ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkExpired(t *testing.T) {
	today := time.Date(2025, time.June, 6, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "expires a past booking", affected: 1, want: true},
		{name: "already expired by an earlier run", affected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, _ := newRepository(t)

			mock.ExpectExec(expireQuery).
				WithArgs(true, "b-1", false, today).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			expired, err := repo.MarkExpired(context.Background(), "b-1", today)

			assert.NoError(t, err)
			assert.Equal(t, tt.want, expired)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMarkReminderSent(t *testing.T) {
	repo, mock, _ := newRepository(t)

	mock.ExpectExec(reminderSentQuery).
		WithArgs(true, "b-1", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(reminderSentQuery).
		WithArgs(true, "b-1", false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := repo.MarkReminderSent(context.Background(), "b-1")
	assert.NoError(t, err)
	assert.True(t, first)

	second, err := repo.MarkReminderSent(context.Background(), "b-1")
	assert.NoError(t, err)
	assert.False(t, second)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearReminderSent(t *testing.T) {
	repo, mock, _ := newRepository(t)

	mock.ExpectExec(reminderSentQuery).
		WithArgs(false, "b-1", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	cleared, err := repo.ClearReminderSent(context.Background(), "b-1")
	assert.NoError(t, err)
	assert.True(t, cleared)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListExpired(t *testing.T) {
	repo, mock, _ := newRepository(t)
	today := time.Date(2025, time.June, 6, 0, 0, 0, 0, time.UTC)

	mock.ExpectPrepare(listExpiredQuery).
		ExpectQuery().
		WithArgs(false, today, "b-1", 200).
		WillReturnRows(sqlmock.NewRows(bookingColumns).
			AddRow("b-2", "Jane", "Doe", "0712345678", "br-1", "r-101", today.AddDate(0, 0, -5), today.AddDate(0, 0, -1), false))

	bookings, err := repo.ListExpired(context.Background(), today, "b-1", 200)

	assert.NoError(t, err)

	if assert.Len(t, bookings, 1) {
		assert.Equal(t, "b-2", bookings[0].ID)
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindGuest(t *testing.T) {
	detailColumns := append(append([]string{}, bookingColumns...), "branch_name", "room_number")
	checkIn := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		lookup  model.Lookup
		view    model.View
		query   string
		args    []driver.Value
		wantLen int
	}{
		{
			name:    "by email in every view",
			lookup:  model.Lookup{FirstName: "Jane", LastName: "Doe", EmailOrPhone: "Jane@Example.com"},
			view:    model.ViewAll,
			query:   findByEmailQuery,
			args:    []driver.Value{"Jane", "Doe", "Jane@Example.com"},
			wantLen: 1,
		},
		{
			name:   "by formatted phone among active bookings",
			lookup: model.Lookup{FirstName: "jane", LastName: "doe", EmailOrPhone: "0712 345-678"},
			view:   model.ViewActive,
			query:  findByPhoneQuery,
			args:   []driver.Value{false, "jane", "doe", "0712345678"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, _ := newRepository(t)

			rows := sqlmock.NewRows(detailColumns)
			for range tt.wantLen {
				rows.AddRow("b-1", "Jane", "Doe", "0712345678", "br-1", "r-101", checkIn, checkIn.AddDate(0, 0, 4), false, "Downtown", 101)
			}

			mock.ExpectPrepare(tt.query).
				ExpectQuery().
				WithArgs(tt.args...).
				WillReturnRows(rows)

			bookings, err := repo.FindGuest(context.Background(), tt.lookup, tt.view)

			assert.NoError(t, err)
			assert.Len(t, bookings, tt.wantLen)

			if tt.wantLen > 0 {
				assert.Equal(t, "Downtown", bookings[0].BranchName)
				assert.Equal(t, 101, bookings[0].RoomNumber)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
