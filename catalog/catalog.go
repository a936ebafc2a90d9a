// Package catalog is the fixed list of creatures offered for browsing.
package catalog

import "fmt"

const spriteURL = "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/%d.png"

type Entry struct {
	ID    int
	Name  string
	Image string
}

var entries = []Entry{
	newEntry(132, "Ditto"),
	newEntry(1, "Bulbasaur"),
	newEntry(4, "Charmander"),
	newEntry(7, "Squirtle"),
	newEntry(25, "Pikachu"),
}

func newEntry(id int, name string) Entry {
	return Entry{ID: id, Name: name, Image: SpriteURL(id)}
}

func SpriteURL(id int) string {
	return fmt.Sprintf(spriteURL, id)
}

// All returns a copy, callers may modify it freely.
func All() []Entry {
	return append([]Entry(nil), entries...)
}

func Lookup(id int) (Entry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}

	return Entry{}, false
}
