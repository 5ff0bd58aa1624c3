package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Yulian302/lfusys-renewal-map/auth/types"
	apperror "github.com/Yulian302/lfusys-renewal-map/errors"
)

// ProfileStore holds the one serialized UserProfile of this client. Load
// returns ErrProfileNotFound when nothing is stored and ErrProfileCorrupted
// when the stored bytes do not decode.
type ProfileStore interface {
	Load(ctx context.Context) (*types.UserProfile, error)
	Save(ctx context.Context, profile types.UserProfile) error
	Delete(ctx context.Context) error
}

func encode(profile types.UserProfile) ([]byte, error) {
	data, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*types.UserProfile, error) {
	var profile types.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrProfileCorrupted, err)
	}
	return &profile, nil
}
