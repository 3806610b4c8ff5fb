package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"healthcare-admin-server/internal/models"
	"healthcare-admin-server/internal/scheduling"
)

// Directory resolves doctors and users from MySQL.
type Directory struct {
	db *gorm.DB
}

// NewDirectory creates a Directory.
func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// GetDoctor loads a doctor by id.
func (d *Directory) GetDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := d.db.WithContext(ctx).First(&doctor, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, scheduling.ErrNotFound
		}
		return nil, err
	}
	return &doctor, nil
}

// DoctorsByIDs loads the doctors with the given ids, keyed by id. Unknown ids
// are absent from the result.
func (d *Directory) DoctorsByIDs(ctx context.Context, ids []string) (map[string]models.Doctor, error) {
	out := make(map[string]models.Doctor, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var doctors []models.Doctor
	if err := d.db.WithContext(ctx).Where("id IN ?", ids).Find(&doctors).Error; err != nil {
		return nil, err
	}
	for _, doc := range doctors {
		out[doc.ID] = doc
	}
	return out, nil
}

// UsersByIDs loads the users with the given ids, keyed by id.
func (d *Directory) UsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := d.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// Admins lists every admin account.
func (d *Directory) Admins(ctx context.Context) ([]models.User, error) {
	var admins []models.User
	if err := d.db.WithContext(ctx).Where("role = ?", models.RoleAdmin).Find(&admins).Error; err != nil {
		return nil, err
	}
	return admins, nil
}

// EnsureAdmin creates an admin account with the given credentials unless a
// user with that email already exists.
func EnsureAdmin(ctx context.Context, db *gorm.DB, email, password string) (created bool, err error) {
	var existing models.User
	err = db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	admin := models.User{
		Email:     email,
		FirstName: "System",
		LastName:  "Admin",
		Role:      models.RoleAdmin,
	}
	if err := admin.SetPassword(password); err != nil {
		return false, err
	}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return false, err
	}
	return true, nil
}
