package handler

import (
	"github.com/playeconomy/identity/internal/core/domain"
	"github.com/playeconomy/identity/internal/core/ports"
)

// --- Request → Service input ---

func toCreateInput(req createUserRequest) ports.CreateUserInput {
	return ports.CreateUserInput{
		Email:    req.Email,
		Password: req.Password,
		Gil:      req.Gil,
	}
}

func toUpdateInput(req updateUserRequest) ports.UpdateUserInput {
	return ports.UpdateUserInput{
		Email: req.Email,
		Gil:   req.Gil,
	}
}

// --- Domain → Response ---

func toUserResponse(u *domain.User) userResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return userResponse{
		ID:          u.ID,
		Username:    u.UserName,
		Email:       u.Email,
		Gil:         u.Gil,
		Roles:       roles,
		CreatedDate: u.CreatedOn,
	}
}

func toUserResponses(users []*domain.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}
