package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xelth-com/eckclaims/internal/models"
)

// Resolution is the identity a new job for a serial will carry
type Resolution struct {
	IdentityKey         string `json:"identity_key"`
	RoundNumber         int    `json:"round_number"`
	IsReplacementSerial bool   `json:"is_replacement_serial"`
	// ChainedFrom is the row key of the round this one continues, if any
	ChainedFrom string `json:"chained_from,omitempty"`
}

// Availability answers the "check serial" call without writing anything
type Availability struct {
	Available           bool   `json:"available"`
	IsReplacementSerial bool   `json:"is_replacement_serial"`
	Message             string `json:"message"`
}

const (
	msgSerialInUse       = "serial number already in use"
	msgReplacementSerial = "serial number can be used but it is a replacement serial"
	msgSerialAvailable   = "serial number can be used"
)

// Resolver decides whether a serial can be registered and which identity chain it joins
type Resolver struct {
	store  Store
	newID  func() string
	linear bool
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithIDGenerator replaces the random key source
func WithIDGenerator(gen func() string) ResolverOption {
	return func(r *Resolver) { r.newID = gen }
}

// WithLinearChains rejects continuing a round that already has a later round
func WithLinearChains(enabled bool) ResolverOption {
	return func(r *Resolver) { r.linear = enabled }
}

// NewResolver creates a resolver reading from store
func NewResolver(store Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{store: store, newID: uuid.NewString}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Check reports availability of serial. It never writes and is safe to repeat.
func (r *Resolver) Check(ctx context.Context, serial string) (Availability, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return Availability{}, fmt.Errorf("%w: serial number is required", ErrInvalidInput)
	}

	existing, err := r.store.FindBySerial(ctx, serial)
	if err != nil {
		return Availability{}, err
	}
	if existing != nil {
		return Availability{Available: false, Message: msgSerialInUse}, nil
	}

	preds, err := r.store.FindByReplacementTarget(ctx, serial)
	if err != nil {
		return Availability{}, err
	}
	if len(preds) > 0 {
		return Availability{Available: true, IsReplacementSerial: true, Message: msgReplacementSerial}, nil
	}
	return Availability{Available: true, Message: msgSerialAvailable}, nil
}

// predecessor finds the round a new job for serial continues, or nil for a new chain.
// A record declaring serial as its replacement wins; otherwise replacementOf names
// the predecessor directly. Unknown replacementOf targets are orphans.
func (r *Resolver) predecessor(ctx context.Context, serial, replacementOf string) (*models.SerialJob, error) {
	existing, err := r.store.FindBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSerial, serial)
	}

	preds, err := r.store.FindByReplacementTarget(ctx, serial)
	if err != nil {
		return nil, err
	}
	if len(preds) > 0 {
		return &preds[0], nil
	}

	replacementOf = strings.TrimSpace(replacementOf)
	if replacementOf == "" || models.FoldSerial(replacementOf) == models.FoldSerial(serial) {
		return nil, nil
	}
	return r.store.FindBySerial(ctx, replacementOf)
}

// Resolve computes identity key and round number for a new job on serial.
// It fails with ErrDuplicateSerial when the serial is already a current unit.
func (r *Resolver) Resolve(ctx context.Context, serial, replacementOf string) (Resolution, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return Resolution{}, fmt.Errorf("%w: serial number is required", ErrInvalidInput)
	}

	pred, err := r.predecessor(ctx, serial, replacementOf)
	if err != nil {
		return Resolution{}, err
	}

	if pred != nil {
		if r.linear {
			taken, err := r.store.HasSuccessor(ctx, pred.IdentityKey, pred.RoundNumber)
			if err != nil {
				return Resolution{}, err
			}
			if taken {
				return Resolution{}, fmt.Errorf("%w: serial %s already has a replacement", ErrInvalidInput, pred.SerialNumber)
			}
		}
		return Resolution{
			IdentityKey:         pred.IdentityKey,
			RoundNumber:         pred.RoundNumber + 1,
			IsReplacementSerial: true,
			ChainedFrom:         pred.RowKey,
		}, nil
	}

	key, err := r.NewIdentityKey(ctx)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{IdentityKey: key, RoundNumber: 1}, nil
}

// NewIdentityKey returns a random identity key no stored job uses yet
func (r *Resolver) NewIdentityKey(ctx context.Context) (string, error) {
	return r.unusedKey(ctx, r.store.IdentityKeyExists)
}

// NewRowKey returns a random row key no stored job uses yet
func (r *Resolver) NewRowKey(ctx context.Context) (string, error) {
	return r.unusedKey(ctx, r.store.RowKeyExists)
}

func (r *Resolver) unusedKey(ctx context.Context, exists func(context.Context, string) (bool, error)) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate := r.newID()
		used, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
	}
}
