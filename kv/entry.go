package kv

import (
	"encoding/json"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"strconv"
)

// entry is a single key/value pair held by the primary key index.
// Fields are exported only so that copier can reach them.
type entry struct {
	Key   string
	Value []byte
}

func newEntry(key string, value []byte) *entry {
	return &entry{Key: key, Value: value}
}

func (ent *entry) clone() *entry {
	var cpEnt entry
	if err := copier.CopyWithOption(&cpEnt, ent, copier.Option{DeepCopy: true}); err != nil {
		panic("could not copy entry: " + err.Error())
	}

	return &cpEnt
}

func byKeys(a, b interface{}) bool {
	i1, i2 := a.(*entry), b.(*entry)
	return i1.Key < i2.Key
}

func serializeToValue(d interface{}) ([]byte, error) {
	switch typedValue := d.(type) {
	case []byte:
		return typedValue, nil
	case int:
		return []byte(strconv.Itoa(typedValue)), nil
	case string:
		return []byte(typedValue), nil
	}

	b, err := json.Marshal(d)
	if err != nil {
		return nil, errors.Wrapf(err, "could not marshal data %+v value", d)
	}

	return b, nil
}
