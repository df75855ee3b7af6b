package transport

import (
	"time"

	"github.com/mpetrashov/user-service/internal/models"
)

type CreateUserReq struct {
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	OtherName string       `json:"other_name"`
	Phone     string       `json:"phone"`
	Email     string       `json:"email"`
	Birthdate *time.Time   `json:"birthdate"`
	Role      *models.Role `json:"role"`
	Password  string       `json:"password"`
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshReq struct {
	Token string `json:"token"`
}

type TokensResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// UpdateUserReq carries the profile fields a user may edit on their own
// account. Nil means "leave unchanged".
type UpdateUserReq struct {
	FirstName *string    `json:"first_name"`
	LastName  *string    `json:"last_name"`
	OtherName *string    `json:"other_name"`
	Phone     *string    `json:"phone"`
	Email     *string    `json:"email"`
	Birthdate *time.Time `json:"birthdate"`
}

// UpdateUserAdminReq additionally exposes the admin-only fields.
type UpdateUserAdminReq struct {
	UpdateUserReq
	IsActive *bool        `json:"is_active"`
	Role     *models.Role `json:"role"`
}

// EditableUserView is the projection returned to any authenticated caller
/// listing users: the self-editable profile fields only. Account id, role
// and active status stay admin-view data.
type EditableUserView struct {
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	OtherName string     `json:"other_name"`
	Phone     string     `json:"phone"`
	Email     string     `json:"email"`
	Birthdate *time.Time `json:"birthdate"`
}

// UserBaseView adds the account-status fields for a user's own profile but
// still withholds the id.
type UserBaseView struct {
	EditableUserView
	IsActive bool        `json:"is_active"`
	Role     models.Role `json:"role"`
}

func EditableUserViewFrom(u *models.User) EditableUserView {
	return EditableUserView{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		OtherName: u.OtherName,
		Phone:     u.Phone,
		Email:     u.Email,
		Birthdate: u.Birthdate,
	}
}

func UserBaseViewFrom(u *models.User) UserBaseView {
	return UserBaseView{
		EditableUserView: EditableUserViewFrom(u),
		IsActive:         u.IsActive,
		Role:             u.Role,
	}
}

func EditableUserViewsFrom(users []models.User) []EditableUserView {
	views := make([]EditableUserView, len(users))
	for i := range users {
		views[i] = EditableUserViewFrom(&users[i])
	}
	return views
}

type UserPage struct {
	Items []models.User `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Size  int           `json:"size"`
}
