// Package dq3 holds the record layouts and work-RAM memory map of
// Dragon Quest III (SNES).
//
// Every character slot shares one 60-byte layout. The hero and party slot 5
// carry a spell-flag byte at offset 23; the other companion slots leave it
// undocumented, so it is kept as an opaque Reserved byte there.
package dq3

import (
	"fmt"

	"github.com/ssargent/savelayout/pkg/codec"
	"github.com/ssargent/savelayout/pkg/memmap"
)

const (
	// NameTerminator ends every in-game name
	NameTerminator = 0xAC

	CharacterSize = 60
	InventorySize = 512

	InventoryBase  = 0x3725
	HeroBase       = 0x3925
	PartyBase      = 0x3961 // party member #2
	PartyStride    = 0x3C
	FirstPartySlot = 2
	LastPartySlot  = 12
	SpellPartySlot = 5
)

// Layout names
const (
	LayoutCharacter = "character"
	LayoutCompanion = "companion"
	LayoutInventory = "inventory"
)

func characterFields(slot codec.FieldSpec) []codec.FieldSpec {
	return []codec.FieldSpec{
		codec.BitField("Level", 0, 1, 0x7F, 1).Describe("Level, top 7 bits"),
		codec.BitField("LevelFlag", 0, 1, 0x01, 0).Unknown().Describe("Bottom bit of the level byte, meaning unknown"),
		codec.Uint32("XP", 1).Describe("Experience points"),
		codec.Uint16("HPMax", 5).Describe("Max HP"),
		codec.Uint16("HP", 7).Describe("Current HP"),
		codec.Uint16("MPMax", 9).Describe("Max MP"),
		codec.Uint16("MP", 11).Describe("Current MP"),
		codec.Uint8("Strength", 13).Describe("Strength stat"),
		codec.Uint8("Agility", 14).Describe("Agility stat"),
		codec.Uint8("Stamina", 15).Describe("Stamina stat"),
		codec.Uint8("Wisdom", 16).Describe("Wisdom stat"),
		codec.Uint8("Luck", 17).Describe("Luck stat, excluding equipment"),
		codec.Text("Name", 18, 5, NameTerminator).Describe("Name, 4 characters max, ends in AC"),
		slot,
		codec.Uint8("EquippedCount", 24).Describe("Number of items equipped"),
		codec.Uint8("CarriedCount", 25).Describe("Number of items in bag"),
		codec.ByteArray("BagItems", 26, 34).Describe("Each byte is which item is in the bag slot"),
	}
}

var (
	// Character is the layout of the hero and party member #5
	Character = codec.MustSchema(LayoutCharacter, CharacterSize,
		characterFields(codec.Uint8("Spells", 23).Describe("Spell flags"))...)

	// Companion is the layout of the remaining party members
	Companion = codec.MustSchema(LayoutCompanion, CharacterSize,
		characterFields(codec.Uint8("Reserved", 23).Unknown().Describe("Undocumented"))...)

	// Inventory is the shared bag
	Inventory = codec.MustSchema(LayoutInventory, InventorySize,
		codec.ByteArray("Items", 0, 256).Describe("Item in each bag slot, 0 means empty, game uses $01-$E4"),
		codec.ByteArray("Amounts", 256, 256).Describe("Amount of the item in each bag slot, up to 99 ($63)"),
	)
)

var layouts = map[string]*codec.Schema{
	LayoutCharacter: Character,
	LayoutCompanion: Companion,
	LayoutInventory: Inventory,
}

// Layout returns a schema by layout name
func Layout(name string) (*codec.Schema, bool) {
	s, ok := layouts[name]
	return s, ok
}

// Layouts returns every distinct layout
func Layouts() []*codec.Schema {
	return []*codec.Schema{Character, Companion, Inventory}
}

// PartyMemberBase returns the base address of party member n (2..12)
func PartyMemberBase(n int) (uint32, error) {
	if n < FirstPartySlot || n > LastPartySlot {
		return 0, fmt.Errorf("party member %d outside %d..%d", n, FirstPartySlot, LastPartySlot)
	}
	return PartyBase + uint32(n-FirstPartySlot)*PartyStride, nil
}

// PartyMemberName returns the region name of party member n
func PartyMemberName(n int) string {
	return fmt.Sprintf("PartyMember_%d", n)
}

// Regions returns the thirteen record instances in address order
func Regions() []memmap.Region {
	regions := []memmap.Region{
		{Name: "Inventory", Base: InventoryBase, Schema: Inventory},
		{Name: "Hero", Base: HeroBase, Schema: Character},
	}
	for n := FirstPartySlot; n <= LastPartySlot; n++ {
		base, _ := PartyMemberBase(n)
		schema := Companion
		if n == SpellPartySlot {
			schema = Character
		}
		regions = append(regions, memmap.Region{Name: PartyMemberName(n), Base: base, Schema: schema})
	}
	return regions
}

// Map returns the validated work-RAM memory map
func Map() *memmap.Map {
	return memmap.MustMap(Regions()...)
}
