package model

import "time"

const DefaultDurationMinutes = 30

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        *User  `json:"user"`
}

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Role      Role   `json:"role" validate:"role"`

	GivenNames string `json:"nombres,omitempty"`
	Surnames   string `json:"apellidos,omitempty"`
	Phone      string `json:"telefono,omitempty"`
	Address    string `json:"direccion,omitempty"`
	NationalID string `json:"documento_identidad,omitempty"`
	BirthDate  string `json:"fecha_nacimiento,omitempty"`

	Specialty     string `json:"especialidad,omitempty" validate:"required_if=Role 2"`
	LicenseNumber string `json:"numero_licencia,omitempty" validate:"required_if=Role 2"`
}

// RegisterResult carries both business and transport failures as a message.
type RegisterResult struct {
	Success bool
	Message string
	User    *User
}

type CreateAppointment struct {
	DoctorID        int64     `json:"doctor_id" validate:"required,gt=0"`
	Title           string    `json:"title" validate:"required"`
	Description     string    `json:"description,omitempty"`
	At              time.Time `json:"appointment_datetime" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"min=1,max=480"`
}

// UpdateAppointment is a partial update; nil fields are left untouched.
type UpdateAppointment struct {
	DoctorID        *int64     `json:"doctor_id,omitempty" validate:"omitempty,gt=0"`
	Title           *string    `json:"title,omitempty" validate:"omitempty,min=1"`
	Description     *string    `json:"description,omitempty"`
	At              *time.Time `json:"appointment_datetime,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty" validate:"omitempty,min=1,max=480"`
}

func (u UpdateAppointment) Empty() bool {
	return u.DoctorID == nil && u.Title == nil && u.Description == nil &&
		u.At == nil && u.DurationMinutes == nil
}
