package dto

import (
	"hotel/internal/domains/branch/model"
	"hotel/shared"
	gDto "hotel/shared/dto"
	gModel "hotel/shared/model"
	"hotel/shared/phone"
	"hotel/shared/timezone"

	"github.com/google/uuid"
)

type CreateBranchRequest struct {
	Name    string  `json:"name"    validate:"required,max=255"`
	Address string  `json:"address" validate:"required,max=255"`
	Zipcode string  `json:"zipcode" validate:"required,max=20"`
	Phone   string  `json:"phone"   validate:"required,phone"`
	Email   string  `json:"email"   validate:"required,email"`
	Website string  `json:"website" validate:"omitempty,url"`
	Rating  float64 `json:"rating"  validate:"gte=0,lte=5"`
	Image   string  `json:"image"   validate:"omitempty,datauri"`
}

func (c *CreateBranchRequest) ToModel(actor string) model.Branch {
	now := timezone.Now()

	return model.Branch{
		ID:      uuid.NewString(),
		Name:    c.Name,
		Slug:    model.Slugify(c.Name),
		Address: c.Address,
		Zipcode: c.Zipcode,
		Phone:   phone.Normalize(c.Phone),
		Email:   c.Email,
		Website: c.Website,
		Rating:  c.Rating,
		Metadata: gModel.Metadata{
			CreatedAt:  now,
			ModifiedAt: now,
			CreatedBy:  actor,
			ModifiedBy: actor,
		},
	}
}

type UpdateBranchRequest struct {
	Name    string   `db:"name"    json:"name"    validate:"omitempty,max=255"`
	Address string   `db:"address" json:"address" validate:"omitempty,max=255"`
	Zipcode string   `db:"zipcode" json:"zipcode" validate:"omitempty,max=20"`
	Phone   string   `db:"phone"   json:"phone"   validate:"omitempty,phone"`
	Email   string   `db:"email"   json:"email"   validate:"omitempty,email"`
	Website string   `db:"website" json:"website" validate:"omitempty,url"`
	Rating  *float64 `db:"rating"  json:"rating"  validate:"omitempty,gte=0,lte=5"`
	Image   string   `json:"image"   validate:"omitempty,datauri"`
}

// ToFields builds the column set for a partial update. A new name also moves the slug.
func (u UpdateBranchRequest) ToFields(actor string) map[string]any {
	if u.Phone != "" {
		u.Phone = phone.Normalize(u.Phone)
	}

	fields := shared.TransformFields(u, actor)
	if u.Name != "" {
		fields[model.FieldSlug] = model.Slugify(u.Name)
	}

	return fields
}

type BranchResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Slug     string  `json:"slug"`
	Address  string  `json:"address"`
	Zipcode  string  `json:"zipcode"`
	Phone    string  `json:"phone"`
	Email    string  `json:"email"`
	Website  string  `json:"website,omitempty"`
	Rating   float64 `json:"rating"`
	ImageURL string  `json:"image_url,omitempty"`
	gDto.Metadata
}

func (r *BranchResponse) FromModel(m model.Branch) {
	r.ID = m.ID
	r.Name = m.Name
	r.Slug = m.Slug
	r.Address = m.Address
	r.Zipcode = m.Zipcode
	r.Phone = m.Phone
	r.Email = m.Email
	r.Website = m.Website
	r.Rating = m.Rating
	r.ImageURL = m.ImageURL
	r.Metadata.FromModel(m.Metadata)
}

type GetBranchesResponse struct {
	Branches  []BranchResponse `json:"branches"`
	TotalPage int              `json:"total_page"`
	TotalData int              `json:"total_data"`
}

func (r *GetBranchesResponse) FromModels(models []model.Branch, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Branches = make([]BranchResponse, len(models))
	for i, m := range models {
		r.Branches[i].FromModel(m)
	}
}
