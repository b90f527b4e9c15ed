package vm

import (
	"fmt"
	"strings"
)

// Inspector provides debugging inspection of values. It recursively
// inspects objects, showing their trait-backed slots and their dynamic
// properties, and describes classes through their trait tables.
type Inspector struct {
	rt *Runtime
}

// InspectionResult contains structured information about an inspected value.
type InspectionResult struct {
	Type       string       // Value kind: undefined, null, boolean, number, string, object, function, closure, class
	Value      string       // String representation of the value
	ClassName  string       // For objects: the class name
	ID         string       // For objects: the instance id
	Slots      []MemberInfo // For objects: trait-backed slots in slot order
	Properties []MemberInfo // For objects: dynamic properties in insertion order
	Traits     []TraitInfo  // For classes: instance traits, inherited first
	Statics    []TraitInfo  // For classes: static traits
	Nested     []*InspectionResult
}

// MemberInfo is one named value on an object.
type MemberInfo struct {
	Name       string
	Value      *InspectionResult
	Frozen     bool // slots: const or class already initialized
	Enumerable bool // dynamic properties
}

// TraitInfo describes one trait for display.
type TraitInfo struct {
	Key   string
	Kind  string
	Type  string
	Slot  int
	Owner string
}

// DefaultMaxDepth is the default recursion depth for inspection.
const DefaultMaxDepth = 3

// NewInspector creates a new Inspector attached to the given runtime.
func NewInspector(rt *Runtime) *Inspector {
	return &Inspector{rt: rt}
}

// Inspect inspects a value with the default maximum depth.
func (i *Inspector) Inspect(v Value) *InspectionResult {
	return i.InspectDepth(v, DefaultMaxDepth)
}

// InspectDepth inspects a value with a specified maximum recursion depth.
// When depth reaches 0, nested objects are shown as summaries only.
func (i *Inspector) InspectDepth(v Value, depth int) *InspectionResult {
	switch v.kind {
	case KindObject:
		return i.inspectObject(v.Object(), depth)
	case KindClass:
		return i.DescribeClass(v.Class())
	case KindClosure:
		c := v.Closure()
		return &InspectionResult{
			Type:      "closure",
			Value:     fmt.Sprintf("%s bound to %s", c.fn.name, c.receiver.ID()),
			ClassName: c.receiver.ClassName(),
		}
	case KindFunction:
		return &InspectionResult{Type: "function", Value: v.Function().name}
	case KindString:
		return &InspectionResult{Type: "string", Value: fmt.Sprintf("%q", v.str)}
	}
	return &InspectionResult{Type: v.kind.String(), Value: ToString(v)}
}

// inspectObject handles inspection of class instances and class objects.
func (i *Inspector) inspectObject(obj *Object, depth int) *InspectionResult {
	result := &InspectionResult{
		Type:      "object",
		ClassName: obj.ClassName(),
		ID:        obj.ID(),
		Value:     obj.String(),
	}
	if depth <= 0 {
		return result
	}

	obj.ForEachSlot(func(tr *Trait, v Value, frozen bool) {
		result.Slots = append(result.Slots, MemberInfo{
			Name:   tr.Key.String(),
			Value:  i.InspectDepth(v, depth-1),
			Frozen: frozen,
		})
	})
	obj.ForEachProperty(func(key, v Value, enumerable bool) {
		result.Properties = append(result.Properties, MemberInfo{
			Name:       ToString(key),
			Value:      i.InspectDepth(v, depth-1),
			Enumerable: enumerable,
		})
	})
	return result
}

// DescribeClass lists a class's traits. Unlinked classes are linked first;
// a link failure is reported in Value.
func (i *Inspector) DescribeClass(c *Class) *InspectionResult {
	result := &InspectionResult{
		Type:      "class",
		ClassName: c.FullName(),
		Value:     c.FullName(),
	}
	if !c.linked {
		if err := i.rt.Link(c); err != nil {
			result.Value = fmt.Sprintf("%s <unlinked: %v>", c.FullName(), err)
			return result
		}
	}
	if c.super != nil {
		result.Value += " extends " + c.super.FullName()
	}
	if c.dynamic {
		result.Value += " (dynamic)"
	}

	var chain []*TraitTable
	for tt := c.instance; tt != nil; tt = tt.parent {
		chain = append(chain, tt)
	}
	for j := len(chain) - 1; j >= 0; j-- {
		for _, tr := range chain[j].traits {
			result.Traits = append(result.Traits, describeTrait(tr))
		}
	}
	for _, tr := range c.static.traits {
		result.Statics = append(result.Statics, describeTrait(tr))
	}
	if c.object != nil {
		result.Nested = append(result.Nested, i.inspectObject(c.object, 1))
	}
	return result
}

func describeTrait(tr *Trait) TraitInfo {
	info := TraitInfo{
		Key:   tr.Key.String(),
		Kind:  tr.Kind.String(),
		Slot:  tr.Slot,
		Owner: tr.owner.class.FullName(),
	}
	if tr.Type != nil {
		info.Type = tr.Type.String()
	}
	if tr.Kind == TraitClass && tr.Class != nil {
		info.Type = tr.Class.FullName()
	}
	return info
}

// String returns a pretty-printed representation of the inspection result.
func (r *InspectionResult) String() string {
	return r.stringWithIndent(0)
}

// stringWithIndent creates a string representation with the given indentation level.
func (r *InspectionResult) stringWithIndent(indent int) string {
	var sb strings.Builder
	prefix := strings.Repeat("  ", indent)

	sb.WriteString(prefix)
	sb.WriteString(r.Type)
	sb.WriteString(": ")
	sb.WriteString(r.Value)
	sb.WriteString("\n")

	if r.ID != "" {
		fmt.Fprintf(&sb, "%s  id: %s\n", prefix, r.ID)
	}

	if len(r.Slots) > 0 {
		sb.WriteString(prefix)
		sb.WriteString("  slots:\n")
		for _, m := range r.Slots {
			marker := ""
			if m.Frozen {
				marker = " (frozen)"
			}
			fmt.Fprintf(&sb, "%s    %s: %s%s\n", prefix, m.Name, memberValue(m), marker)
		}
	}

	if len(r.Properties) > 0 {
		sb.WriteString(prefix)
		sb.WriteString("  properties:\n")
		for _, m := range r.Properties {
			marker := ""
			if !m.Enumerable {
				marker = " (hidden)"
			}
			fmt.Fprintf(&sb, "%s    %s: %s%s\n", prefix, m.Name, memberValue(m), marker)
		}
	}

	writeTraits(&sb, prefix, "traits", r.Traits)
	writeTraits(&sb, prefix, "statics", r.Statics)

	for _, n := range r.Nested {
		sb.WriteString(n.stringWithIndent(indent + 1))
	}
	return sb.String()
}

func memberValue(m MemberInfo) string {
	if m.Value == nil {
		return "<nil>"
	}
	return m.Value.Value
}

func writeTraits(sb *strings.Builder, prefix, label string, traits []TraitInfo) {
	if len(traits) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s  %s:\n", prefix, label)
	for _, t := range traits {
		fmt.Fprintf(sb, "%s    %-14s %s", prefix, t.Kind, t.Key)
		if t.Type != "" {
			sb.WriteString(" : ")
			sb.WriteString(t.Type)
		}
		if t.Slot >= 0 {
			fmt.Fprintf(sb, " [slot %d]", t.Slot)
		}
		fmt.Fprintf(sb, " (%s)\n", t.Owner)
	}
}
