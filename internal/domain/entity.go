package domain

import (
	"encoding/json"
	"reflect"
	"strings"
)

// Entity pairs a stable identifier with a fixed-shape property bag.
//
// The id never changes after construction. Props fields are only changed by
// entity-specific methods (see User).
type Entity[P any] struct {
	id    string
	props P
}

// NewEntity stores props verbatim. An empty id is replaced by a fresh one.
func NewEntity[P any](props P, id string) Entity[P] {
	if id == "" {
		id = NewID()
	}
	return Entity[P]{id: id, props: props}
}

func (e Entity[P]) ID() string { return e.id }

// Props returns a copy of the property bag.
func (e Entity[P]) Props() P { return e.props }

// ToJSON projects the entity into a flat map: "id" plus every props field,
// keyed by its JSON name.
func (e Entity[P]) ToJSON() map[string]any {
	out := map[string]any{}
	v := reflect.ValueOf(e.props)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			break
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := f.Name
			if tag, ok := f.Tag.Lookup("json"); ok {
				tagName, _, _ := strings.Cut(tag, ",")
				if tagName == "-" {
					continue
				}
				if tagName != "" {
					name = tagName
				}
			}
			out[name] = v.Field(i).Interface()
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String {
			iter := v.MapRange()
			for iter.Next() {
				out[iter.Key().String()] = iter.Value().Interface()
			}
		}
	}
	out["id"] = e.id
	return out
}

func (e Entity[P]) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToJSON())
}
