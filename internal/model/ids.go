package model

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// Id prefixes, one namespace per record kind.
const (
	PrefixMemory   = "mem_"
	PrefixEvent    = "evt_"
	PrefixDecision = "dec_"
	PrefixChange   = "chg_"
)

// NewID returns prefix followed by 8 random hex characters.
func NewID(prefix string) string {
	u := uuid.New()
	return prefix + hex.EncodeToString(u[:4])
}

// NewInteractionID returns a full random UUID string.
func NewInteractionID() string {
	return uuid.NewString()
}
