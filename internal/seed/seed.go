// Package seed derives the deterministic 64-bit integer that drives
// every random choice in a run, per spec.md §4.1.
//
// Hashing a short string with MD5 and reading back four bytes of
// digest is exactly what the standard library's crypto/md5 is for;
// nothing in the retrieved example pack carries a richer hashing
// dependency that would serve this better, so this component is
// intentionally stdlib-only.
package seed

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	darkwallerrors "github.com/veighnsche/darkwall-comfyui/internal/errors"
)

// MinSlotMinutes and MaxSlotMinutes bound the configured time-slot
// width, per spec.md §4.1.
const (
	MinSlotMinutes = 1
	MaxSlotMinutes = 1440
)

// Derive produces the deterministic seed for instant now, given the
// configured slot width in minutes and an optional monitor
// discriminator (empty when monitor-seeding is disabled).
func Derive(now time.Time, slotMinutes int, monitorDiscriminator string) (uint64, error) {
	if slotMinutes < MinSlotMinutes || slotMinutes > MaxSlotMinutes {
		return 0, &darkwallerrors.ConfigInvalid{
			Key:    "prompt.time_slot_minutes",
			Reason: fmt.Sprintf("must be in %d..=%d, got %d", MinSlotMinutes, MaxSlotMinutes, slotMinutes),
		}
	}

	local := now.Local()
	slotIndex := local.Minute() / slotMinutes

	slotString := fmt.Sprintf("%04d-%02d-%02d-%02d-%d-%s",
		local.Year(), local.Month(), local.Day(), local.Hour(), slotIndex, monitorDiscriminator)

	sum := md5.Sum([]byte(slotString))
	hexDigest := hex.EncodeToString(sum[:])

	value, err := strconv.ParseUint(hexDigest[:8], 16, 32)
	if err != nil {
		// Unreachable: hex.EncodeToString of an md5.Sum always yields
		// valid lowercase hex digits.
		return 0, fmt.Errorf("seed: unexpected hex decode failure: %w", err)
	}
	return value, nil
}

// SlotString exposes the exact discriminator string used by Derive,
// for diagnostics such as the `prompt preview` command's output.
func SlotString(now time.Time, slotMinutes int, monitorDiscriminator string) string {
	local := now.Local()
	slotIndex := local.Minute() / slotMinutes
	return fmt.Sprintf("%04d-%02d-%02d-%02d-%d-%s",
		local.Year(), local.Month(), local.Day(), local.Hour(), slotIndex, monitorDiscriminator)
}
