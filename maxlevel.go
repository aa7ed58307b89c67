package imtool

import "fmt"

// Rescale maps every sample s to floor(s*newMax/oldMax) and sets the max color
// value to newMax. Truncation is deliberate: scaling down and back up loses
// precision, it never gains it. Rescaling to the current max leaves samples as
// they are.
func Rescale(b *Buffer, newMax int) error {
	if !validMaxColor(newMax) {
		return fmt.Errorf("%w: %d (must be between %d and %d)",
			ErrInvalidMaxColor, newMax, MinColorValue, MaxColorValue16Bit)
	}

	oldMax := uint64(b.maxColorValue)
	scale := func(plane []uint16) {
		for i, s := range plane {
			plane[i] = uint16(uint64(s) * uint64(newMax) / oldMax)
		}
	}
	scale(b.red)
	scale(b.green)
	scale(b.blue)

	b.maxColorValue = newMax
	return nil
}
