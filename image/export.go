package image

import (
	"math"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/avmcore/vm"
)

// ExportJSON renders an object's state as JSON:
//
//	{"id": "...", "class": "...", "slots": {...}, "properties": {...}}
//
// Referenced objects appear as {"$ref": id}. Functions and classes are
// rendered by name. Non-finite numbers become the strings "NaN",
// "Infinity" and "-Infinity".
func ExportJSON(obj *vm.Object) ([]byte, error) {
	st, err := ExportStruct(obj)
	if err != nil {
		return nil, err
	}
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(st)
}

// ExportStruct builds the structpb form of an object's state.
func ExportStruct(obj *vm.Object) (*structpb.Struct, error) {
	slots := &structpb.Struct{Fields: make(map[string]*structpb.Value)}
	obj.ForEachSlot(func(tr *vm.Trait, v vm.Value, frozen bool) {
		slots.Fields[tr.Key.String()] = exportValue(v)
	})
	props := &structpb.Struct{Fields: make(map[string]*structpb.Value)}
	obj.ForEachProperty(func(key, v vm.Value, enumerable bool) {
		props.Fields[vm.ToString(key)] = exportValue(v)
	})

	class := "Class"
	if c := obj.Class(); c != nil {
		class = c.FullName()
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":         structpb.NewStringValue(obj.ID()),
		"class":      structpb.NewStringValue(class),
		"slots":      structpb.NewStructValue(slots),
		"properties": structpb.NewStructValue(props),
	}}, nil
}

func exportValue(v vm.Value) *structpb.Value {
	switch v.Kind() {
	case vm.KindUndefined, vm.KindNull:
		return structpb.NewNullValue()
	case vm.KindBoolean:
		return structpb.NewBoolValue(v.Bool())
	case vm.KindNumber:
		f := v.Float64()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return structpb.NewStringValue(vm.NumberToString(f))
		}
		return structpb.NewNumberValue(f)
	case vm.KindString:
		return structpb.NewStringValue(v.Str())
	case vm.KindObject:
		return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"$ref": structpb.NewStringValue(v.Object().ID()),
		}})
	}
	return structpb.NewStringValue(vm.ToString(v))
}
