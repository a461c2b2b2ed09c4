package httpapi

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required,min=3,max=100"`
	Password   string `json:"password" validate:"required,min=6,max=100"`
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username,omitempty" validate:"omitempty,min=3,max=256"`
	Name     string `json:"name" validate:"required,min=1"`
	Password string `json:"password" validate:"required,min=6"`
}

// updateProfileRequest lists every field a user may change. Anything else,
// email included, is rejected by the decoder.
type updateProfileRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitnil,min=1"`
	Username *string `json:"username,omitempty" validate:"omitnil,min=3,max=256"`
	Password *string `json:"password,omitempty" validate:"omitnil,min=6"`
}

type resendRequest struct {
	Identifier string `json:"identifier" validate:"required,min=3,max=100"`
}

type verifyQuery struct {
	Token string `json:"token" validate:"required,min=3,max=100"`
}

type messageResponse struct {
	Message string `json:"message"`
}
