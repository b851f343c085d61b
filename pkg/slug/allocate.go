package slug

import (
	"context"
	"errors"
	"strconv"
)

// MaxAllocatedLength bounds the title part of allocated slugs.
const MaxAllocatedLength = 200

// maxSuffixes bounds disambiguation attempts; hitting it means the store is
// full of adversarial titles like "x-7-7-7".
const maxSuffixes = 8

// ErrExhausted is returned when no free slug was found.
var ErrExhausted = errors.New("slug: could not find a free slug")

// Lookup reports which entity currently owns slug.
type Lookup func(ctx context.Context, slug string) (ownerID int64, found bool, err error)

// Allocate returns the slug for entity id with the given title.
//
// The base is Make(title). An empty base falls back to the id itself. When the
// base belongs to another entity, "-{id}" is appended until the result is free
// or already owned by id. The result only depends on the title, the id and
// the current owners, so re-running it for an unchanged title returns the
// slug the entity already has.
//
// id must already be assigned: new entities are inserted first and get their
// slug in a second step.
func Allocate(ctx context.Context, title string, id int64, lookup Lookup) (string, error) {
	suffix := "-" + strconv.FormatInt(id, 10)

	candidate := Make(title, MaxLength(MaxAllocatedLength))
	if candidate == "" {
		candidate = strconv.FormatInt(id, 10)
	}

	for range maxSuffixes {
		owner, found, err := lookup(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !found || owner == id {
			return candidate, nil
		}
		candidate += suffix
	}

	return "", ErrExhausted
}
