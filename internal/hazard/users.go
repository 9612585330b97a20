package hazard

import (
	"context"
	"slices"

	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/couchcryptid/civix-hazard-service/internal/store"
)

// RegisterInput identifies a device and optional profile fields.
type RegisterInput struct {
	DeviceID string `json:"deviceId"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	FCMToken string `json:"fcmToken"`
}

// ProfilePatch holds the profile fields to change; nil fields are left alone.
type ProfilePatch struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	FCMToken *string `json:"fcmToken"`
}

// Register returns the user bound to the device, creating one if needed.
// created reports whether a new user was stored.
func (s *Service) Register(ctx context.Context, in RegisterInput) (user domain.User, created bool, err error) {
	if in.DeviceID == "" {
		return domain.User{}, false, domain.NewError(domain.KindInvalidRequest, "Device ID required")
	}

	users, err := store.LoadAll[domain.User](ctx, s.store, domain.CollectionUsers)
	if err != nil {
		return domain.User{}, false, err
	}
	if i := slices.IndexFunc(users, func(u domain.User) bool { return u.DeviceID == in.DeviceID }); i >= 0 {
		return users[i], false, nil
	}

	user = domain.User{
		UserID:    s.userIDs(),
		DeviceID:  in.DeviceID,
		Name:      in.Name,
		Phone:     in.Phone,
		FCMToken:  in.FCMToken,
		CreatedAt: domain.Now(),
	}
	users = append(users, user)
	if err := store.SaveAll(ctx, s.store, domain.CollectionUsers, users); err != nil {
		return domain.User{}, false, err
	}

	s.logger.Info("user registered", "user_id", user.UserID)
	return user, true, nil
}

// Profile returns userID's profile with the number of stored reports they own.
func (s *Service) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	users, err := store.LoadAll[domain.User](ctx, s.store, domain.CollectionUsers)
	if err != nil {
		return domain.Profile{}, err
	}
	i := slices.IndexFunc(users, func(u domain.User) bool { return u.UserID == userID })
	if i < 0 {
		return domain.Profile{}, domain.NewError(domain.KindNotFound, "User not found")
	}

	reports, err := s.loadReports(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	count := 0
	for _, r := range reports {
		if r.UserID == userID {
			count++
		}
	}

	u := users[i]
	return domain.Profile{
		UserID:       u.UserID,
		Name:         u.Name,
		Phone:        u.Phone,
		ReportsCount: count,
		JoinedAt:     u.CreatedAt,
	}, nil
}

// UpdateProfile applies patch to userID's profile.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) error {
	users, err := store.LoadAll[domain.User](ctx, s.store, domain.CollectionUsers)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(users, func(u domain.User) bool { return u.UserID == userID })
	if i < 0 {
		return domain.NewError(domain.KindNotFound, "User not found")
	}

	u := &users[i]
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Phone != nil {
		u.Phone = *patch.Phone
	}
	if patch.FCMToken != nil {
		u.FCMToken = *patch.FCMToken
	}
	return store.SaveAll(ctx, s.store, domain.CollectionUsers, users)
}
