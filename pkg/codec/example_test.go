package codec_test

import (
	"errors"
	"fmt"
	"log"

	"github.com/ssargent/savelayout/pkg/codec"
)

// ExampleDecode decodes a level byte whose low bit is an unknown flag
func ExampleDecode() {
	s := codec.MustSchema("level", 1,
		codec.BitField("Level", 0, 1, 0x7F, 1),
		codec.BitField("LevelFlag", 0, 1, 0x01, 0).Unknown(),
	)

	r, err := codec.Decode(s, []byte{0xFF})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(r.Field("Level"), r.Field("LevelFlag"))
	// Output: 127 1
}

// ExampleEncode writes a terminated name into a fixed-width field
func ExampleEncode() {
	s := codec.MustSchema("name", 5, codec.Text("Name", 0, 5, 0xAC))

	buf, err := codec.Encode(s, codec.NewRecord(map[string]codec.Value{
		"Name": codec.StringValue("AB"),
	}))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("% x\n", buf)
	// Output: 41 42 ac 00 00
}

// ExampleError shows how callers test the failure kind
func ExampleError() {
	s := codec.MustSchema("stats", 2,
		codec.Uint8("Strength", 0),
		codec.Uint8("Agility", 1),
	)

	_, err := codec.Encode(s, codec.NewRecord(map[string]codec.Value{
		"Agility": codec.UintValue(9),
	}))

	fmt.Println(errors.Is(err, codec.ErrMissingField))
	fmt.Println(err)
	// Output:
	// true
	// codec: missing_field at stats.Strength: record has no value
}

// ExampleSchema_Gaps reports the undocumented byte ranges of a layout
func ExampleSchema_Gaps() {
	s := codec.MustSchema("sparse", 8,
		codec.Uint16("HP", 0),
		codec.Uint8("Luck", 5),
	)

	fmt.Printf("%.1f%%\n", s.Coverage())
	for _, g := range s.Gaps() {
		fmt.Printf("gap at %d, %d bytes\n", g.Offset, g.Size)
	}
	// Output:
	// 37.5%
	// gap at 2, 3 bytes
	// gap at 6, 2 bytes
}
