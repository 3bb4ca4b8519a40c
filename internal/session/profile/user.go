// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package profile

import "github.com/taibuivan/clouds/internal/platform/constants"

// User is the application's view of the authenticated account.
//
// ID and Username are assigned by the server and never changed by a profile
// update. Optional fields are empty when the backend did not send them.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	DisplayName  string `json:"displayName"`
	Email        string `json:"email"`
	Avatar       string `json:"avatar"`
	Cover        string `json:"cover,omitempty"`
	Bio          string `json:"bio,omitempty"`
	IsOnline     bool   `json:"isOnline"`
	FriendsCount int    `json:"friendsCount"`
	PostsCount   int    `json:"postsCount"`
	CreatedAt    string `json:"createdAt"`
	Birthday     string `json:"birthday,omitempty"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	Address      string `json:"address,omitempty"`
}

// WithDefaults fills the display fallbacks: display name from username and
// the default avatar. The authenticated user is always online.
func (u User) WithDefaults() User {
	if u.DisplayName == "" {
		u.DisplayName = u.Username
	}
	if u.Avatar == "" {
		u.Avatar = constants.DefaultAvatarURL
	}
	u.IsOnline = true
	return u
}

// Name returns the label shown for the user.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
