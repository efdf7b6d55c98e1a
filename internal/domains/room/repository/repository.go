package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"

	"hotel/infras/otel"
	"hotel/infras/postgres"
	"hotel/internal/domains/room/model"
	"hotel/shared"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	gRepo "hotel/shared/repository"
	"hotel/shared/timezone"

	"github.com/jmoiron/sqlx"
)

const argExpectedAvailability = "expected_available"

// Room stores rooms and their availability flag. The *Tx methods make up the
// availability store and must run inside the transaction that mutates the booking.
type Room interface {
	Insert(ctx context.Context, model model.Room) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Room, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Room, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	DeleteCount(ctx context.Context, filter gDto.FilterGroup) (int64, error)

	LockTx(ctx context.Context, sqltx *sqlx.Tx, roomID string) (model.Room, error)
	IsAvailableTx(ctx context.Context, sqltx *sqlx.Tx, roomID string) (bool, error)
	ReserveTx(ctx context.Context, sqltx *sqlx.Tx, roomID string) error
	ReleaseTx(ctx context.Context, sqltx *sqlx.Tx, roomID string) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Room]
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Room {
	repo := gRepo.NewRepository[model.Room](model.EntityName, model.TableName, model.FieldID, db, otel)
	repo.ConflictMessages = model.ConflictMessages

	return &repositoryImpl{
		Repository: repo,
		otel:       otel,
	}
}

// LockTx reads the room with a row lock held until sqltx ends.
func (r *repositoryImpl) LockTx(ctx context.Context, sqltx *sqlx.Tx, roomID string) (room model.Room, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.LockTx")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	room, err = r.GetForUpdateTx(ctx, sqltx, shared.FilterByID(roomID, model.FieldID, model.TableName))
	if err != nil {
		return room, err
	}

	if room.ID == constant.Empty {
		return room, model.ErrRoomNotFound
	}

	return room, nil
}

func (r *repositoryImpl) IsAvailableTx(ctx context.Context, sqltx *sqlx.Tx, roomID string) (bool, error) {
	room, err := r.LockTx(ctx, sqltx, roomID)
	if err != nil {
		return false, err
	}

	return room.IsAvailable, nil
}

// ReserveTx flips the room to unavailable only if it is still available, so a racing
// transaction that already took the room makes this one fail with ErrRoomUnavailable.
func (r *repositoryImpl) ReserveTx(ctx context.Context, sqltx *sqlx.Tx, roomID string) (err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.ReserveTx")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	return r.swap(ctx, sqltx, roomID, true, false, model.ErrRoomUnavailable)
}

// ReleaseTx makes the room available again. Releasing an already available room is a no-op.
func (r *repositoryImpl) ReleaseTx(ctx context.Context, sqltx *sqlx.Tx, roomID string) (err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.ReleaseTx")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	return r.swap(ctx, sqltx, roomID, false, true, nil)
}

func (r *repositoryImpl) swap(ctx context.Context, sqltx *sqlx.Tx, roomID string, from, to bool, lost error) error {
	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldID, Value: roomID, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.Filter{Field: model.FieldIsAvailable, ArgName: argExpectedAvailability, Value: from, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		},
	}

	affected, err := r.UpdateCountTx(ctx, sqltx, map[string]any{
		model.FieldIsAvailable:   to,
		constant.FieldModifiedAt: timezone.Now(),
	}, filter)
	if err != nil {
		return err
	}

	if affected == 1 {
		return nil
	}

	room, err := r.GetTx(ctx, sqltx, shared.FilterByID(roomID, model.FieldID, model.TableName), model.FieldID, model.FieldIsAvailable)
	if err != nil {
		return err
	}

	if room.ID == constant.Empty {
		return model.ErrRoomNotFound
	}

	return lost
}
