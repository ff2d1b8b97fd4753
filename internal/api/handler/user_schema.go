package handler

import "github.com/vetcare/identity-api/internal/core/domain"

type userProfileResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

func toUserProfileResponse(u *domain.User) userProfileResponse {
	return userProfileResponse{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName(),
	}
}
