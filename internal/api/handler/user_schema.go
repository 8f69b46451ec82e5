package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type createUserRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Gil      int64  `json:"gil"      validate:"min=0"`
}

// updateUserRequest overwrites the mutable fields of a user. Email also
// becomes the login name.
type updateUserRequest struct {
	Email string `json:"email" validate:"required,email"`
	Gil   int64  `json:"gil"   validate:"min=0"`
}

type userResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Gil         int64     `json:"gil"`
	Roles       []string  `json:"roles"`
	CreatedDate time.Time `json:"createdDate"`
}

type claimsResponse struct {
	UserID string   `json:"userId"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}

type rolesResponse struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}
