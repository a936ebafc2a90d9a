package pokeapi

import (
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

type Stat struct {
	Name     string
	BaseStat int
	Effort   int
}

type Record struct {
	ID             int
	Name           string
	Height         int
	Weight         int
	BaseExperience int
	Sprite         string
	Stats          []Stat
	Abilities      []string
	Types          []string
}

// BaseStats lists the numeric attributes of the record in response order.
func (r *Record) BaseStats() []int {
	out := make([]int, len(r.Stats))
	for i := range r.Stats {
		out[i] = r.Stats[i].BaseStat
	}
	return out
}

func decodeRecord(body []byte) (*Record, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.Wrap(ErrMalformedRecord, "invalid json")
	}

	doc := gjson.ParseBytes(body)
	id := doc.Get("id")
	name := doc.Get("name")
	if !id.Exists() || id.Int() <= 0 || name.String() == "" {
		return nil, errors.Wrap(ErrMalformedRecord, "id and name are required")
	}

	r := Record{
		ID:             int(id.Int()),
		Name:           name.String(),
		Height:         int(doc.Get("height").Int()),
		Weight:         int(doc.Get("weight").Int()),
		BaseExperience: int(doc.Get("base_experience").Int()),
		Sprite:         doc.Get("sprites.front_default").String(),
	}

	doc.Get("stats").ForEach(func(_, stat gjson.Result) bool {
		r.Stats = append(r.Stats, Stat{
			Name:     stat.Get("stat.name").String(),
			BaseStat: int(stat.Get("base_stat").Int()),
			Effort:   int(stat.Get("effort").Int()),
		})
		return true
	})

	for _, a := range doc.Get("abilities.#.ability.name").Array() {
		r.Abilities = append(r.Abilities, a.String())
	}

	for _, t := range doc.Get("types.#.type.name").Array() {
		r.Types = append(r.Types, t.String())
	}

	return &r, nil
}
