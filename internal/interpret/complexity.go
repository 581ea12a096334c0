package interpret

import (
	"strings"
)

// Coarse routing vocabulary for the complex-model heuristic. False negatives
// only affect cost and quality, never correctness, so the lists stay small.
// Italian first (the primary table language), English alongside.
var complexVerbs = map[string]struct{}{
	// creation
	"crea": {}, "creami": {}, "creare": {}, "genera": {}, "generami": {},
	"aggiungi": {}, "inventa": {}, "costruisci": {},
	"create": {}, "make": {}, "generate": {}, "add": {}, "build": {},
	// modification
	"modifica": {}, "cambia": {}, "aggiorna": {}, "rimuovi": {}, "togli": {},
	"potenzia": {}, "equipaggia": {},
	"modify": {}, "change": {}, "update": {}, "remove": {}, "equip": {},
}

var entityNouns = map[string]struct{}{
	"mostro": {}, "mostri": {}, "creatura": {}, "creature": {},
	"png": {}, "npc": {}, "personaggio": {}, "personaggi": {},
	"oggetto": {}, "oggetti": {}, "arma": {}, "armi": {},
	"incantesimo": {}, "incantesimi": {}, "scheda": {},
	"actor": {}, "monster": {}, "character": {},
	"item": {}, "items": {}, "weapon": {}, "spell": {}, "statblock": {},
}

// IsComplex reports whether the user's input should be routed to the
// complex-tier model. Matches creation/modification verbs and entity-type
// nouns on whole words after case folding.
func IsComplex(input string) bool {
	for _, word := range strings.Fields(strings.ToLower(input)) {
		word = strings.Trim(word, ".,;:!?\"'()[]")
		if _, ok := complexVerbs[word]; ok {
			return true
		}
		if _, ok := entityNouns[word]; ok {
			return true
		}
	}
	return false
}
