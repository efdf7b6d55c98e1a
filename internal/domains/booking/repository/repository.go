package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"
	"time"

	"hotel/infras/otel"
	"hotel/infras/postgres"
	"hotel/internal/domains/booking/model"
	"hotel/shared"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	"hotel/shared/phone"
	gRepo "hotel/shared/repository"

	"github.com/jmoiron/sqlx"
)

const (
	argExpectedDeleted      = "expected_deleted"
	argExpectedReminderSent = "expected_reminder_sent"
	argWindowStart          = "window_start"
	argWindowEnd            = "window_end"
	argAfterID              = "after_id"
)

// Booking is the booking record store. Writes go through the caller's transaction,
// reads take an explicit view so expired bookings never leak into active listings.
type Booking interface {
	InsertTx(ctx context.Context, sqltx *sqlx.Tx, booking model.Booking) error
	LockTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup) (model.Booking, error)
	UpdateTx(ctx context.Context, sqltx *sqlx.Tx, fields map[string]any, id string) error
	DeleteTx(ctx context.Context, sqltx *sqlx.Tx, id string) error

	Get(ctx context.Context, id string, view model.View) (model.BookingDetail, error)
	GetAll(ctx context.Context, params gDto.QueryParams, view model.View, filter gDto.FilterGroup) ([]model.BookingDetail, error)
	Count(ctx context.Context, view model.View, filter gDto.FilterGroup) (int, error)
	FindGuest(ctx context.Context, lookup model.Lookup, view model.View) ([]model.BookingDetail, error)

	ListExpired(ctx context.Context, today time.Time, afterID string, limit int) ([]model.Booking, error)
	MarkExpired(ctx context.Context, id string, today time.Time) (bool, error)
	ListReminderDue(ctx context.Context, from, to time.Time, afterID string, limit int) ([]model.BookingDetail, error)
	MarkReminderSent(ctx context.Context, id string) (bool, error)
	ClearReminderSent(ctx context.Context, id string) (bool, error)
}

type repositoryImpl struct {
	writer gRepo.Repository[model.Booking]
	reader gRepo.Repository[model.BookingDetail]
	otel   otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Booking {
	writer := gRepo.NewRepository[model.Booking](model.EntityName, model.TableName, model.FieldID, db, otel)
	writer.ConflictMessages = model.ConflictMessages

	return &repositoryImpl{
		writer: writer,
		reader: gRepo.NewRepository[model.BookingDetail](model.EntityName, model.TableName, model.FieldID, db, otel),
		otel:   otel,
	}
}

// ByID matches a booking by primary key, whatever its view.
func ByID(id string) gDto.FilterGroup {
	return shared.FilterByID(id, model.FieldID, model.TableName)
}

// InBranch matches a booking by primary key only while it belongs to branchID.
func InBranch(id, branchID string) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldID, Value: id, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.Filter{Field: model.FieldBranchID, Value: branchID, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		},
	}
}

// ByCredentials matches the active booking a guest proves ownership of.
func ByCredentials(c model.Credentials) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldGuestFirstName, Value: c.FirstName, Operator: gDto.FilterOperatorEqFold, Table: model.TableName},
			gDto.Filter{Field: model.FieldGuestLastName, Value: c.LastName, Operator: gDto.FilterOperatorEqFold, Table: model.TableName},
			gDto.Filter{Field: model.FieldPhoneNumber, Value: phone.Normalize(c.PhoneNumber), Operator: gDto.FilterOperatorEq, Table: model.TableName},
			viewFilter(model.ViewActive),
		},
	}
}

func viewFilter(view model.View) gDto.Filter {
	return gDto.Filter{Field: model.FieldIsDeleted, Value: view == model.ViewHistory, Operator: gDto.FilterOperatorEq, Table: model.TableName}
}

// scoped narrows filter to the bookings visible in view.
func scoped(view model.View, filter gDto.FilterGroup) gDto.FilterGroup {
	filters := []any{}

	if view != model.ViewAll {
		filters = append(filters, viewFilter(view))
	}

	if len(filter.Filters) > 0 {
		filters = append(filters, filter)
	}

	return gDto.FilterGroup{Operator: gDto.FilterGroupOperatorAnd, Filters: filters}
}

func afterID(filters []any, id string) []any {
	if id == constant.Empty {
		return filters
	}

	return append(filters, gDto.Filter{Field: model.FieldID, ArgName: argAfterID, Value: id, Operator: gDto.FilterOperatorGreater, Table: model.TableName})
}

func (r *repositoryImpl) InsertTx(ctx context.Context, sqltx *sqlx.Tx, booking model.Booking) error {
	return r.writer.InsertTx(ctx, sqltx, booking)
}

// LockTx reads the booking matching filter and holds its row lock until sqltx ends.
func (r *repositoryImpl) LockTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup) (booking model.Booking, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.LockTx")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	booking, err = r.writer.GetForUpdateTx(ctx, sqltx, filter)
	if err != nil {
		return booking, err
	}

	if booking.ID == constant.Empty {
		return booking, model.ErrBookingNotFound
	}

	return booking, nil
}

func (r *repositoryImpl) UpdateTx(ctx context.Context, sqltx *sqlx.Tx, fields map[string]any, id string) error {
	return r.writer.UpdateTx(ctx, sqltx, fields, ByID(id))
}

func (r *repositoryImpl) DeleteTx(ctx context.Context, sqltx *sqlx.Tx, id string) error {
	return r.writer.DeleteTx(ctx, sqltx, ByID(id))
}

func (r *repositoryImpl) Get(ctx context.Context, id string, view model.View) (detail model.BookingDetail, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	detail, err = r.reader.Get(ctx, scoped(view, ByID(id)))
	if err != nil {
		return detail, err
	}

	if detail.ID == constant.Empty {
		return detail, model.ErrBookingNotFound
	}

	return detail, nil
}

func (r *repositoryImpl) GetAll(ctx context.Context, params gDto.QueryParams, view model.View, filter gDto.FilterGroup) ([]model.BookingDetail, error) {
	return r.reader.GetAll(ctx, params, scoped(view, filter))
}

func (r *repositoryImpl) Count(ctx context.Context, view model.View, filter gDto.FilterGroup) (int, error) {
	return r.reader.Count(ctx, scoped(view, filter))
}

// FindGuest matches names case-insensitively. The contact is compared as an email,
// ignoring case, when it has an "@" and as a normalised phone number otherwise.
func (r *repositoryImpl) FindGuest(ctx context.Context, lookup model.Lookup, view model.View) (bookings []model.BookingDetail, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.FindGuest")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	contact := gDto.Filter{Field: model.FieldPhoneNumber, Value: phone.Normalize(lookup.EmailOrPhone), Operator: gDto.FilterOperatorEq, Table: model.TableName}
	if phone.IsEmail(lookup.EmailOrPhone) {
		contact = gDto.Filter{Field: model.FieldEmail, Value: lookup.EmailOrPhone, Operator: gDto.FilterOperatorEqFold, Table: model.TableName}
	}

	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldGuestFirstName, Value: lookup.FirstName, Operator: gDto.FilterOperatorEqFold, Table: model.TableName},
			gDto.Filter{Field: model.FieldGuestLastName, Value: lookup.LastName, Operator: gDto.FilterOperatorEqFold, Table: model.TableName},
			contact,
		},
	}

	params := gDto.QueryParams{SortBy: model.TableName + "." + model.FieldCheckInDate, SortDir: gDto.SortDirDesc}

	bookings, err = r.reader.GetAll(ctx, params, scoped(view, filter))
	if err != nil {
		return nil, fmt.Errorf("failed to find guest bookings: %w", err)
	}

	return bookings, nil
}

// ListExpired pages through active bookings whose check-out date is before today,
// ordered by id so the caller can resume after the last id it saw.
func (r *repositoryImpl) ListExpired(ctx context.Context, today time.Time, after string, limit int) ([]model.Booking, error) {
	filters := afterID([]any{
		viewFilter(model.ViewActive),
		gDto.Filter{Field: model.FieldCheckOutDate, Value: today, Operator: gDto.FilterOperatorLess, Table: model.TableName},
	}, after)

	params := gDto.QueryParams{Limit: limit, SortBy: model.TableName + "." + model.FieldID, SortDir: gDto.SortDirAsc}

	return r.writer.GetAll(ctx, params, gDto.FilterGroup{Operator: gDto.FilterGroupOperatorAnd, Filters: filters})
}

// MarkExpired soft deletes one booking. It reports false when the booking was already
// expired or no longer qualifies, which keeps reruns harmless.
func (r *repositoryImpl) MarkExpired(ctx context.Context, id string, today time.Time) (bool, error) {
	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldID, Value: id, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.Filter{Field: model.FieldIsDeleted, ArgName: argExpectedDeleted, Value: false, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.Filter{Field: model.FieldCheckOutDate, Value: today, Operator: gDto.FilterOperatorLess, Table: model.TableName},
		},
	}

	affected, err := r.writer.UpdateCount(ctx, map[string]any{model.FieldIsDeleted: true}, filter)

	return affected == 1, err
}

// ListReminderDue pages through active bookings without a reminder whose check-in
// date falls between from and to, both inclusive.
func (r *repositoryImpl) ListReminderDue(ctx context.Context, from, to time.Time, after string, limit int) ([]model.BookingDetail, error) {
	filters := afterID([]any{
		viewFilter(model.ViewActive),
		gDto.Filter{Field: model.FieldCheckInReminderSent, Value: false, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		gDto.Filter{Field: model.FieldCheckInDate, ArgName: argWindowStart, Value: from, Operator: gDto.FilterOperatorGreaterEq, Table: model.TableName},
		gDto.Filter{Field: model.FieldCheckInDate, ArgName: argWindowEnd, Value: to, Operator: gDto.FilterOperatorLessEq, Table: model.TableName},
	}, after)

	params := gDto.QueryParams{Limit: limit, SortBy: model.TableName + "." + model.FieldID, SortDir: gDto.SortDirAsc}

	return r.reader.GetAll(ctx, params, gDto.FilterGroup{Operator: gDto.FilterGroupOperatorAnd, Filters: filters})
}

// MarkReminderSent claims the reminder of one booking. It reports false when another
// run claimed it first, in which case the caller must not send it.
func (r *repositoryImpl) MarkReminderSent(ctx context.Context, id string) (bool, error) {
	return r.swapReminderSent(ctx, id, false, true)
}

// ClearReminderSent hands a claimed reminder back so a later run can retry it.
func (r *repositoryImpl) ClearReminderSent(ctx context.Context, id string) (bool, error) {
	return r.swapReminderSent(ctx, id, true, false)
}

func (r *repositoryImpl) swapReminderSent(ctx context.Context, id string, from, to bool) (bool, error) {
	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldID, Value: id, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.Filter{Field: model.FieldCheckInReminderSent, ArgName: argExpectedReminderSent, Value: from, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		},
	}

	affected, err := r.writer.UpdateCount(ctx, map[string]any{model.FieldCheckInReminderSent: to}, filter)

	return affected == 1, err
}
