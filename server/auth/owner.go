// Package auth carries the identity asserted by the upstream gateway.
package auth

import (
	"context"
	"errors"
	"strings"

	storageutil "github.com/indieinfra/mediacycle/storage/util"
)

type ownerKeyType struct{}

var ownerKey = ownerKeyType{}

var ErrMissingOwner = errors.New("owner identity is required")
var ErrMalformedOwner = errors.New("owner identity is malformed")

// ParseOwner validates a header value as an owner id usable inside storage keys.
func ParseOwner(raw string) (string, error) {
	owner := strings.TrimSpace(raw)
	if owner == "" {
		return "", ErrMissingOwner
	}

	if storageutil.CheckKeySegment(owner) != nil || len(owner) > 128 {
		return "", ErrMalformedOwner
	}

	return owner, nil
}

func AddOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey, owner)
}

// GetOwner returns the owner stored by AddOwner, or "" when none was stored.
func GetOwner(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}
