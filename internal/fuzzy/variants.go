package fuzzy

import (
	"strings"

	"github.com/icelocator/locator-core/pkg/textnorm"
)

// nicknameAliases maps a common nickname to its formal given-name
// equivalents; the reverse direction is handled by nameVariants below.
// Covers the frequent English/Spanish name pairs.
var nicknameAliases = map[string][]string{
	"jose":     {"joseph", "jo"},
	"joseph":   {"jose", "joe"},
	"pepe":     {"jose"},
	"beto":     {"alberto", "roberto", "humberto"},
	"paco":     {"francisco"},
	"pancho":   {"francisco"},
	"chuy":     {"jesus"},
	"lupe":     {"guadalupe"},
	"chencho":  {"lorenzo"},
	"bill":     {"william"},
	"billy":    {"william"},
	"will":     {"william"},
	"bob":      {"robert"},
	"rob":      {"robert"},
	"bobby":    {"robert"},
	"liz":      {"elizabeth"},
	"beth":     {"elizabeth"},
	"betty":    {"elizabeth"},
	"mike":     {"michael"},
	"tony":     {"antonio", "anthony"},
	"alex":     {"alexander", "alejandro"},
	"sandy":    {"alexandra", "sandra"},
	"maggie":   {"margaret", "magdalena"},
	"kate":     {"katherine", "catalina"},
	"katie":    {"katherine"},
	"nacho":    {"ignacio"},
	"memo":     {"guillermo"},
	"lalo":     {"eduardo"},
	"chayo":    {"rosario"},
	"charo":    {"rosario"},
}

// nameVariants expands a given name into itself plus every culturally
// equivalent form the fuzzy matcher should also try: the accent-stripped
// form and nickname<->formal pairings (bidirectional).
func nameVariants(name string) []string {
	folded := textnorm.FoldLower(strings.TrimSpace(name))
	if folded == "" {
		return nil
	}
	variants := map[string]bool{folded: true}

	if aliases, ok := nicknameAliases[folded]; ok {
		for _, a := range aliases {
			variants[a] = true
		}
	}
	// Reverse lookup: if folded is a formal name that some nickname maps
	// to, include that nickname too.
	for nick, formals := range nicknameAliases {
		for _, f := range formals {
			if f == folded {
				variants[nick] = true
			}
		}
	}

	out := make([]string, 0, len(variants))
	for v := range variants {
		out = append(out, v)
	}
	return out
}

// surnameOrderings returns both orderings of a Hispanic double surname
// ("Garcia Lopez" and "Lopez Garcia") so callers can compare against
// either. A single-word surname returns just itself.
func surnameOrderings(lastName string) []string {
	parts := strings.Fields(textnorm.FoldLower(lastName))
	if len(parts) < 2 {
		return []string{textnorm.FoldLower(lastName)}
	}
	forward := strings.Join(parts, " ")
	reversed := make([]string, len(parts))
	for i, p := range parts {
		reversed[len(parts)-1-i] = p
	}
	return []string{forward, strings.Join(reversed, " ")}
}
