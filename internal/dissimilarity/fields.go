package dissimilarity

import (
	"fmt"
	"strings"

	"tgmdiversity/internal/model"
)

// DefaultFields are the gene identity attributes.
var DefaultFields = []string{"gameObject", "component", "componentField", "modifier"}

// Field extracts one attribute of a gene record.
type Field struct {
	Name    string
	Kind    Kind
	Extract func(model.GeneRecord) Value
}

var knownFields = map[string]Field{
	"gameObject":         categorical("gameObject", func(r model.GeneRecord) string { return r.Key.GameObject }),
	"component":          categorical("component", func(r model.GeneRecord) string { return r.Key.Component }),
	"componentField":     categorical("componentField", func(r model.GeneRecord) string { return r.Key.ComponentField }),
	"modifier":           categorical("modifier", func(r model.GeneRecord) string { return r.Key.Modifier }),
	"gameObjectCategory": categorical("gameObjectCategory", func(r model.GeneRecord) string { return string(r.GameObjectCategory) }),
	"componentCategory":  categorical("componentCategory", func(r model.GeneRecord) string { return string(r.ComponentCategory) }),
	"geneGroup":          categorical("geneGroup", func(r model.GeneRecord) string { return r.GeneGroup }),
	"fitness": {
		Name: "fitness",
		Kind: Numeric,
		Extract: func(r model.GeneRecord) Value {
			if !r.FitnessValid {
				return Missing(Numeric)
			}
			return Num(r.Fitness)
		},
	},
}

func categorical(name string, get func(model.GeneRecord) string) Field {
	return Field{
		Name:    name,
		Kind:    Categorical,
		Extract: func(r model.GeneRecord) Value { return Cat(get(r)) },
	}
}

// ResolveFields maps configured field names onto extractors. Names match
// case-insensitively; an empty list selects DefaultFields.
func ResolveFields(names []string) ([]Field, error) {
	if len(names) == 0 {
		names = DefaultFields
	}
	fields := make([]Field, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		field, ok := lookupField(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown dissimilarity field %q", model.ErrInvalidConfig, name)
		}
		if seen[field.Name] {
			continue
		}
		seen[field.Name] = true
		fields = append(fields, field)
	}
	return fields, nil
}

func lookupField(name string) (Field, bool) {
	name = strings.TrimSpace(name)
	if field, ok := knownFields[name]; ok {
		return field, true
	}
	for key, field := range knownFields {
		if strings.EqualFold(key, name) {
			return field, true
		}
	}
	return Field{}, false
}

// FieldNames lists every supported field name.
func FieldNames() []string {
	return []string{
		"gameObject", "component", "componentField", "modifier",
		"gameObjectCategory", "componentCategory", "geneGroup", "fitness",
	}
}

// Individuals projects records onto fields, one Individual per record.
func Individuals(records []model.GeneRecord, fields []Field) []Individual {
	out := make([]Individual, 0, len(records))
	for _, record := range records {
		ind := make(Individual, len(fields))
		for i, field := range fields {
			ind[i] = field.Extract(record)
		}
		out = append(out, ind)
	}
	return out
}
