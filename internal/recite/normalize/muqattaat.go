package normalize

import "strings"

// muqattaat maps the spoken letter names of the disjointed openings to the
// symbol written in the Mushaf. Spoken forms are given already normalized.
var muqattaat = []struct {
	spoken string
	symbol string
}{
	{"الف لام ميم", "الم"},
	{"الف لام ميم صاد", "المص"},
	{"الف لام را", "الر"},
	{"الف لام ميم را", "المر"},
	{"كاف ها يا عين صاد", "كهيعص"},
	{"طا ها", "طه"},
	{"طا سين ميم", "طسم"},
	{"طا سين", "طس"},
	{"يا سين", "يس"},
	{"صاد", "ص"},
	{"حا ميم", "حم"},
	{"عين سين قاف", "عسق"},
	{"حا ميم عين سين قاف", "حمعسق"},
	{"قاف", "ق"},
	{"نون", "ن"},
}

var (
	spokenSpaced  = make(map[string]string, len(muqattaat))
	spokenCompact = make(map[string]string, len(muqattaat))
	maxSpokenLen  int
)

func init() {
	for _, m := range muqattaat {
		fields := strings.Fields(m.spoken)
		spokenSpaced[spacedKey(fields)] = m.symbol
		spokenCompact[compactKey(fields)] = m.symbol
		maxSpokenLen = max(maxSpokenLen, len(fields))
	}
}

// trimHamza drops the trailing hamza of letter names spelled with it
// ("راء", "هاء").
func trimHamza(s string) string {
	if strings.HasSuffix(s, string([]rune{alef, hamza})) {
		return strings.TrimSuffix(s, string(hamza))
	}
	return s
}

func spacedKey(fields []string) string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = trimHamza(f)
	}
	return strings.Join(keys, " ")
}

// compactKey is taken over the joined fields so that it equals the key of
// the joined word on a second pass.
func compactKey(fields []string) string {
	return trimHamza(strings.Join(fields, ""))
}

func lookupMuqattaat(fields []string) (string, bool) {
	if sym, ok := spokenSpaced[spacedKey(fields)]; ok {
		return sym, true
	}
	sym, ok := spokenCompact[compactKey(fields)]
	return sym, ok
}

// matchPhrase returns the symbol for the longest spoken phrase of at least
// two tokens at the head of keys, and how many tokens it spans.
func matchPhrase(keys []string) (string, int) {
	for n := min(maxSpokenLen, len(keys)); n >= 2; n-- {
		if sym, ok := spokenSpaced[strings.Join(keys[:n], " ")]; ok {
			return sym, n
		}
	}
	return "", 0
}
