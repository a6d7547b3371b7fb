// Package auth implements the shared-token gate in front of post mutations.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"quill/db"
)

// TokenKey is the slot where a successful login is remembered
const TokenKey = "adminApiToken"

var (
	ErrNotConfigured = errors.New("admin token is not configured")
	ErrInvalidToken  = errors.New("invalid admin token")
)

// Gate compares presented tokens against the single configured admin token
type Gate struct {
	expected string
}

func NewGate(expected string) *Gate {
	return &Gate{expected: expected}
}

func (g *Gate) Configured() bool {
	return g.expected != ""
}

// Check returns nil only for an exact match with the configured token
func (g *Gate) Check(token string) error {
	if !g.Configured() {
		return ErrNotConfigured
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(g.expected)) != 1 {
		return ErrInvalidToken
	}
	return nil
}

// Keeper remembers an accepted token in its own slot so later commands run
// without asking again.
type Keeper struct {
	slots db.SlotStore
	gate  *Gate
}

func NewKeeper(slots db.SlotStore, gate *Gate) *Keeper {
	return &Keeper{slots: slots, gate: gate}
}

// Login checks token and, when accepted, stores it
func (k *Keeper) Login(ctx context.Context, token string) error {
	if err := k.gate.Check(token); err != nil {
		return err
	}
	if err := k.slots.Put(ctx, TokenKey, []byte(token)); err != nil {
		return fmt.Errorf("failed to save admin token: %w", err)
	}
	log.Info("Admin token saved")
	return nil
}

func (k *Keeper) Logout(ctx context.Context) error {
	return k.slots.Delete(ctx, TokenKey)
}

// Remembered returns the stored token, if any
func (k *Keeper) Remembered(ctx context.Context) (string, bool) {
	raw, err := k.slots.Get(ctx, TokenKey)
	if err != nil {
		if !errors.Is(err, db.ErrSlotNotFound) {
			log.WithField("error", err).Warn("Could not read saved admin token")
		}
		return "", false
	}
	return string(raw), true
}

// Authorized reports whether the remembered token still passes the gate.
// A token saved before the configured one changed no longer does.
func (k *Keeper) Authorized(ctx context.Context) error {
	token, ok := k.Remembered(ctx)
	if !ok {
		if !k.gate.Configured() {
			return ErrNotConfigured
		}
		return ErrInvalidToken
	}
	return k.gate.Check(token)
}
