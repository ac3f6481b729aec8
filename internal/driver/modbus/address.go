// internal/driver/modbus/address.go
package modbus

import (
	"fmt"
	"strconv"
	"strings"
)

// Area is a Modbus data table, named by its read function code.
type Area uint8

const (
	AreaCoil            Area = 1
	AreaDiscreteInput   Area = 2
	AreaHoldingRegister Area = 3
	AreaInputRegister   Area = 4
)

const (
	maxBitCount      = 2000
	maxRegisterCount = 125
)

var areaNames = map[string]Area{
	"coil":             AreaCoil,
	"discrete-input":   AreaDiscreteInput,
	"holding-register": AreaHoldingRegister,
	"input-register":   AreaInputRegister,
}

func (a Area) String() string {
	for name, v := range areaNames {
		if v == a {
			return name
		}
	}
	return fmt.Sprintf("area(%d)", uint8(a))
}

func (a Area) isBits() bool {
	return a == AreaCoil || a == AreaDiscreteInput
}

// Address is one parsed tag address.
// Geometry only: Start is the 0-based protocol address.
type Address struct {
	Area     Area
	Start    uint16
	Quantity uint16
	// Array is set when the address carried an explicit [count].
	Array bool
}

// ParseAddress parses "<area>:<start>" or "<area>:<start>[<count>]".
func ParseAddress(s string) (Address, error) {
	areaStr, rest, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Address{}, fmt.Errorf("modbus: address %q: want <area>:<start>[count]", s)
	}

	area, ok := areaNames[strings.ToLower(areaStr)]
	if !ok {
		return Address{}, fmt.Errorf("modbus: address %q: unknown area %q", s, areaStr)
	}

	a := Address{Area: area, Quantity: 1}

	startStr := rest
	if i := strings.IndexByte(rest, '['); i >= 0 {
		if !strings.HasSuffix(rest, "]") {
			return Address{}, fmt.Errorf("modbus: address %q: unterminated count", s)
		}
		n, err := strconv.ParseUint(rest[i+1:len(rest)-1], 10, 16)
		if err != nil || n == 0 {
			return Address{}, fmt.Errorf("modbus: address %q: invalid count", s)
		}
		startStr = rest[:i]
		a.Quantity = uint16(n)
		a.Array = true
	}

	start, err := strconv.ParseUint(startStr, 10, 16)
	if err != nil {
		return Address{}, fmt.Errorf("modbus: address %q: invalid start", s)
	}
	a.Start = uint16(start)

	limit := uint16(maxRegisterCount)
	if area.isBits() {
		limit = maxBitCount
	}
	if a.Quantity > limit {
		return Address{}, fmt.Errorf("modbus: address %q: count %d exceeds %d", s, a.Quantity, limit)
	}
	if uint32(a.Start)+uint32(a.Quantity) > 65536 {
		return Address{}, fmt.Errorf("modbus: address %q: range exceeds address space", s)
	}

	return a, nil
}
