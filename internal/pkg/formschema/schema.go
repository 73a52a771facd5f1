// Package formschema builds JSON-Schema form descriptions from tagged Go structs.
//
// Field metadata comes from struct tags:
//
//	json:"name"          property name ("-" skips the field)
//	binding:"required"   marks the property required
//	label:"Title"        property title (default: name with "_" replaced, title-cased)
//	help:"..."           property description
//	relation:"Model"     field holds references to Model rows
//
// Fields whose type implements Chooser render as enums.
package formschema

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Chooser is implemented by string types restricted to a fixed set of values.
type Chooser interface {
	Choices() []Choice
}

// HasChoice reports whether v is one of c's values.
func HasChoice(c Chooser, v string) bool {
	for _, ch := range c.Choices() {
		if ch.Value == v {
			return true
		}
	}
	return false
}

// Values returns the raw values of c in declaration order.
func Values(c Chooser) []string {
	choices := c.Choices()
	out := make([]string, len(choices))
	for i, ch := range choices {
		out[i] = ch.Value
	}
	return out
}

type Property struct {
	Type        string      `json:"type"`
	Format      string      `json:"format,omitempty"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Required    bool        `json:"required,omitempty"`
	Enum        []string    `json:"enum,omitempty"`
	EnumNames   []string    `json:"enumNames,omitempty"`
	Items       *Property   `json:"items,omitempty"`
	Properties  *Properties `json:"properties,omitempty"`
}

// Properties is an insertion-ordered property map so forms render fields in struct order.
type Properties struct {
	keys []string
	m    map[string]*Property
}

func NewProperties() *Properties {
	return &Properties{m: map[string]*Property{}}
}

func (p *Properties) Set(name string, prop *Property) {
	if _, ok := p.m[name]; !ok {
		p.keys = append(p.keys, name)
	}
	p.m[name] = prop
}

func (p *Properties) Get(name string) (*Property, bool) {
	prop, ok := p.m[name]
	return prop, ok
}

func (p *Properties) Keys() []string {
	return append([]string(nil), p.keys...)
}

func (p *Properties) Len() int { return len(p.keys) }

func (p *Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := sonic.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := sonic.Marshal(p.m[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type Document struct {
	Type       string      `json:"type"`
	Properties *Properties `json:"properties"`
	Required   []string    `json:"required"`
}

var (
	chooserType = reflect.TypeOf((*Chooser)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
)

// Generator is safe for concurrent use; WithRelationEnum derives new generators instead of mutating.
type Generator struct {
	relationEnums map[string][]string
}

func New() *Generator {
	return &Generator{relationEnums: map[string][]string{}}
}

// WithRelationEnum returns a copy of g that lists values by name for the relation field.
// Other relation fields are described as integer IDs.
func (g *Generator) WithRelationEnum(field string, values []string) *Generator {
	enums := make(map[string][]string, len(g.relationEnums)+1)
	for k, v := range g.relationEnums {
		enums[k] = v
	}
	enums[field] = append([]string{}, values...)
	return &Generator{relationEnums: enums}
}

// Generate describes v, which must be a struct or a pointer to one.
func (g *Generator) Generate(v any) (*Document, error) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, errors.New("formschema: value must be a struct")
	}

	props, required := g.structProperties(t, map[reflect.Type]bool{})
	return &Document{
		Type:       "object",
		Properties: props,
		Required:   required,
	}, nil
}

func (g *Generator) structProperties(t reflect.Type, seen map[reflect.Type]bool) (*Properties, []string) {
	seen[t] = true
	defer delete(seen, t)

	props := NewProperties()
	required := []string{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := fieldName(f)
		if name == "-" {
			continue
		}
		prop := g.fieldProperty(name, f, seen)
		props.Set(name, prop)
		if prop.Required {
			required = append(required, name)
		}
	}
	return props, required
}

func (g *Generator) fieldProperty(name string, f reflect.StructField, seen map[reflect.Type]bool) *Property {
	ft := deref(f.Type)

	prop := g.typeProperty(ft, seen)
	if label := f.Tag.Get("label"); label != "" {
		prop.Title = label
	} else {
		prop.Title = Title(name)
	}
	if help := f.Tag.Get("help"); help != "" {
		prop.Description = help
	}
	prop.Required = hasRequired(f.Tag.Get("binding"))

	if rel := f.Tag.Get("relation"); rel != "" {
		g.applyRelation(prop, name, rel, ft)
	}
	return prop
}

func (g *Generator) applyRelation(prop *Property, name, rel string, ft reflect.Type) {
	idItem := &Property{Type: "integer", Description: "ID of the related " + rel}

	if ft.Kind() != reflect.Slice && ft.Kind() != reflect.Array {
		prop.Type = idItem.Type
		prop.Description = firstNonEmpty(prop.Description, idItem.Description)
		prop.Items = nil
		return
	}

	prop.Type = "array"
	if values, ok := g.relationEnums[name]; ok {
		prop.Items = &Property{Type: "string", Enum: values}
		return
	}
	prop.Items = idItem
}

// typeProperty maps a Go type to its JSON-Schema shape without field metadata.
func (g *Generator) typeProperty(t reflect.Type, seen map[reflect.Type]bool) *Property {
	t = deref(t)

	if t.Implements(chooserType) {
		c := reflect.Zero(t).Interface().(Chooser)
		choices := c.Choices()
		prop := &Property{Type: "string"}
		for _, ch := range choices {
			prop.Enum = append(prop.Enum, ch.Value)
			prop.EnumNames = append(prop.EnumNames, ch.Label)
		}
		return prop
	}

	if t == timeType {
		return &Property{Type: "string", Format: "date-time"}
	}

	switch t.Kind() {
	case reflect.String:
		return &Property{Type: "string"}
	case reflect.Bool:
		return &Property{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Property{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &Property{Type: "number"}
	case reflect.Slice, reflect.Array:
		return &Property{Type: "array", Items: g.typeProperty(t.Elem(), seen)}
	case reflect.Map:
		return &Property{Type: "object"}
	case reflect.Struct:
		// self-referencing types stop at one level
		if seen[t] {
			return &Property{Type: "object"}
		}
		props, _ := g.structProperties(t, seen)
		return &Property{Type: "object", Properties: props}
	default:
		return &Property{Type: "string"}
	}
}

// Title turns a snake_case field name into "Title Case" words.
func Title(name string) string {
	// a Caser keeps state between calls, so each call gets its own
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

func fieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}

func hasRequired(binding string) bool {
	for _, part := range strings.Split(binding, ",") {
		if strings.TrimSpace(part) == "required" {
			return true
		}
	}
	return false
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
