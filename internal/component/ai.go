package component

import "time"

// AICaster marks a creature whose spells are chosen by AICastSystem.
// Pure data; the spell list comes from data.CreatureSpellTable by Entry.
type AICaster struct {
	Entry     uint32
	ThinkIn   time.Duration // time until the next spell roll
	ThinkRate time.Duration
}
