package domain

// Palette is the fixed, ordered set of display colours cycled by creation order.
var Palette = [...]string{
	"#3B82F6", // blue
	"#EF4444", // red
	"#10B981", // emerald
	"#F59E0B", // amber
	"#8B5CF6", // violet
	"#EC4899", // pink
	"#06B6D4", // cyan
	"#84CC16", // lime
}

// ColorAt returns the palette colour for the given creation index.
func ColorAt(index int) string {
	n := len(Palette)
	i := index % n
	if i < 0 {
		i += n
	}
	return Palette[i]
}
