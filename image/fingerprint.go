package image

import (
	"fmt"
	"strconv"

	"github.com/zeebo/xxh3"

	"github.com/chazu/avmcore/vm"
)

// Fingerprint hashes a class's instance slot layout: every slot trait in
// index order, inherited slots first, with its qualified key, kind and
// declared type. Two runtimes that declare the same layout compute the same
// fingerprint; private namespaces contribute their URI only. An unlinked
// class has fingerprint 0.
func Fingerprint(c *vm.Class) uint64 {
	tt := c.InstanceTraits()
	if tt == nil {
		return 0
	}
	h := xxh3.New()
	for i := 0; i < tt.SlotCount(); i++ {
		tr := tt.SlotTrait(i)
		h.WriteString(strconv.Itoa(int(tr.Key.NS.Kind)))
		h.WriteString("\x00")
		h.WriteString(tr.Key.NS.URI)
		h.WriteString("\x00")
		h.WriteString(tr.Key.Name)
		h.WriteString("\x00")
		h.WriteString(tr.Kind.String())
		h.WriteString("\x00")
		h.WriteString(tr.Type.String())
		h.WriteString("\x01")
	}
	return h.Sum64()
}

// FormatFingerprint renders a fingerprint as 16 hex digits.
func FormatFingerprint(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}

// LayoutFingerprints returns the formatted fingerprint of every linked
// class, keyed by full name.
func LayoutFingerprints(classes []*vm.Class) map[string]string {
	fps := make(map[string]string, len(classes))
	for _, c := range classes {
		if c.Linked() {
			fps[c.FullName()] = FormatFingerprint(Fingerprint(c))
		}
	}
	return fps
}
