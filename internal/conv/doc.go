// Package conv provides bounds-checked integer conversions for fixed-width
// wire fields.
//
// Frame counts are stored as uint32 and owner ranks as int32; the helpers
// here turn a value that does not fit into an ErrOverflow error instead of
// a silent truncation.
package conv
