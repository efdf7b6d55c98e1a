package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"

	"hotel/infras/otel"
	"hotel/infras/postgres"
	"hotel/internal/domains/branch/model"
	gDto "hotel/shared/dto"
	gRepo "hotel/shared/repository"
)

type Branch interface {
	Insert(ctx context.Context, model model.Branch) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Branch, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Branch, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	Delete(ctx context.Context, filter gDto.FilterGroup) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Branch]
}

func New(db *postgres.Connection, otel otel.Otel) Branch {
	repo := gRepo.NewRepository[model.Branch](model.EntityName, model.TableName, model.FieldID, db, otel)
	repo.ConflictMessages = model.ConflictMessages

	return &repositoryImpl{Repository: repo}
}
