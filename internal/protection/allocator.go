// Package protection assigns protection IDs to compartments.
//
// Each compartment gets a primary ID (its code/data segment) and a shadow ID
// (its symbol-table segment), both derived from its ordinal:
//
//	primary = PrimaryBase + ordinal
//	shadow  = ShadowBase  + ordinal
//
// The IDs are written into PT_LOAD flag fields, where the firmware loader
// recognises compartment segments by masking out the type bits. Reordering
// the description therefore renumbers every compartment.
package protection

import (
	"compartmentalize/internal/config"
	"compartmentalize/internal/logging"
	"compartmentalize/internal/types"
)

// Capacity returns how many compartments fit before primary IDs run into the
// shadow block or shadow IDs overflow the flag field.
func Capacity(cfg config.LayoutConfig) int {
	if cfg.ShadowBase <= cfg.PrimaryBase || cfg.FlagLimit <= cfg.ShadowBase {
		return 0
	}
	primary := int(cfg.ShadowBase - cfg.PrimaryBase)
	shadow := int(cfg.FlagLimit - cfg.ShadowBase)
	return min(primary, shadow)
}

// Allocate returns one assignment per compartment, in ordinal order.
func Allocate(cfg config.LayoutConfig, set *types.CompartmentSet) ([]types.Assignment, error) {
	limit := Capacity(cfg)
	if set.Len() > limit {
		return nil, &types.CapacityExceededError{
			Limit:  limit,
			Got:    set.Len(),
			Reason: "too many compartments for the protection ID range",
		}
	}

	assignments := make([]types.Assignment, 0, set.Len())
	for _, c := range set.All() {
		a := types.Assignment{
			Compartment: c,
			Primary:     types.ProtectionID(cfg.PrimaryBase + uint32(c.Ordinal)),
			Shadow:      types.ProtectionID(cfg.ShadowBase + uint32(c.Ordinal)),
		}
		logging.ProtectionDebug("%s: primary=%s shadow=%s", c.Name, a.Primary.Hex(), a.Shadow.Hex())
		assignments = append(assignments, a)
	}
	return assignments, nil
}

// IsReserved reports whether flags fall inside the primary or shadow ID blocks.
func IsReserved(cfg config.LayoutConfig, flags uint32) bool {
	limit := uint32(Capacity(cfg))
	switch {
	case flags >= cfg.PrimaryBase && flags < cfg.PrimaryBase+limit:
		return true
	case flags >= cfg.ShadowBase && flags < cfg.ShadowBase+limit:
		return true
	}
	return false
}
