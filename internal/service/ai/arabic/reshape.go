// Package arabic rewrites Arabic letters into their contextual presentation
// forms so plate text renders with correct glyph joining in clients that do
// not shape text themselves.
package arabic

import "github.com/unidoc/garabic"

type joining int

const (
	joinNone joining = iota
	// joinRight letters connect only to the preceding letter.
	joinRight
	// joinDual letters connect on both sides.
	joinDual
)

type letter struct {
	isolated rune
	join     joining
}

// Presentation Forms-B: isolated, final, initial, medial are consecutive.
var letters = map[rune]letter{
	'ء': {0xFE80, joinNone},
	'آ': {0xFE81, joinRight},
	'أ': {0xFE83, joinRight},
	'ؤ': {0xFE85, joinRight},
	'إ': {0xFE87, joinRight},
	'ئ': {0xFE89, joinDual},
	'ا': {0xFE8D, joinRight},
	'ب': {0xFE8F, joinDual},
	'ة': {0xFE93, joinRight},
	'ت': {0xFE95, joinDual},
	'ث': {0xFE99, joinDual},
	'ج': {0xFE9D, joinDual},
	'ح': {0xFEA1, joinDual},
	'خ': {0xFEA5, joinDual},
	'د': {0xFEA9, joinRight},
	'ذ': {0xFEAB, joinRight},
	'ر': {0xFEAD, joinRight},
	'ز': {0xFEAF, joinRight},
	'س': {0xFEB1, joinDual},
	'ش': {0xFEB5, joinDual},
	'ص': {0xFEB9, joinDual},
	'ض': {0xFEBD, joinDual},
	'ط': {0xFEC1, joinDual},
	'ظ': {0xFEC5, joinDual},
	'ع': {0xFEC9, joinDual},
	'غ': {0xFECD, joinDual},
	'ف': {0xFED1, joinDual},
	'ق': {0xFED5, joinDual},
	'ك': {0xFED9, joinDual},
	'ل': {0xFEDD, joinDual},
	'م': {0xFEE1, joinDual},
	'ن': {0xFEE5, joinDual},
	'ه': {0xFEE9, joinDual},
	'و': {0xFEED, joinRight},
	'ى': {0xFEEF, joinRight},
	'ي': {0xFEF1, joinDual},
}

// lam followed by one of these alefs becomes a single ligature (isolated form).
var lamAlef = map[rune]rune{
	'آ': 0xFEF5,
	'أ': 0xFEF7,
	'إ': 0xFEF9,
	'ا': 0xFEFB,
}

const lam = 'ل'

// Reshape strips harakat and tatweel, then replaces every Arabic letter with
// the presentation form its neighbours require. Text stays in logical order.
// Other runes are copied unchanged and break joining.
func Reshape(s string) string {
	in := []rune(garabic.RemoveHarakat(s))
	out := make([]rune, 0, len(in))

	for i := 0; i < len(in); i++ {
		r := in[i]
		cur, ok := letters[r]
		if !ok {
			out = append(out, r)
			continue
		}

		joinsPrev := i > 0 && connectsForward(in[i-1]) && cur.join != joinNone

		if r == lam && i+1 < len(in) {
			if lig, ok := lamAlef[in[i+1]]; ok {
				if joinsPrev {
					lig++
				}
				out = append(out, lig)
				i++
				continue
			}
		}

		joinsNext := cur.join == joinDual && i+1 < len(in) && joinsBackward(in[i+1])

		out = append(out, form(cur, joinsPrev, joinsNext))
	}

	return string(out)
}

func form(l letter, prev, next bool) rune {
	switch {
	case prev && next:
		return l.isolated + 3
	case next:
		return l.isolated + 2
	case prev:
		return l.isolated + 1
	default:
		return l.isolated
	}
}

func connectsForward(r rune) bool {
	l, ok := letters[r]
	return ok && l.join == joinDual
}

func joinsBackward(r rune) bool {
	l, ok := letters[r]
	return ok && l.join != joinNone
}
