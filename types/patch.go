package types

import (
	"strings"
)

type PatchType uint8

const (
	Patch_Generic PatchType = iota
	Patch_Wall
	Patch_Cyclic
	Patch_Processor
	Patch_Symmetry
	Patch_Empty
)

func (pt PatchType) String() string {
	switch pt {
	case Patch_Generic:
		return "patch"
	case Patch_Wall:
		return "wall"
	case Patch_Cyclic:
		return "cyclic"
	case Patch_Processor:
		return "processor"
	case Patch_Symmetry:
		return "symmetry"
	case Patch_Empty:
		return "empty"
	}
	return "unknown"
}

// IsCoupled is true for patch types whose faces exchange data with a partner patch
func (pt PatchType) IsCoupled() bool {
	return pt == Patch_Cyclic || pt == Patch_Processor
}

var PatchNameMap = map[string]PatchType{
	"patch":     Patch_Generic,
	"wall":      Patch_Wall,
	"cyclic":    Patch_Cyclic,
	"periodic":  Patch_Cyclic,
	"processor": Patch_Processor,
	"symmetry":  Patch_Symmetry,
	"symmetric": Patch_Symmetry,
	"empty":     Patch_Empty,
}

// ParsePatchType looks up a patch type by name, unknown names are generic patches
func ParsePatchType(name string) PatchType {
	if pt, ok := PatchNameMap[strings.ToLower(strings.TrimSpace(name))]; ok {
		return pt
	}
	return Patch_Generic
}

/*
PatchTag is a boundary marker name of the form "<type>-<label>", e.g. "Wall-top" or "Cyclic-left".
A marker without a dash is taken as a type name when it matches one, otherwise it is a label.
*/
type PatchTag string

func NewPatchTag(token string) PatchTag {
	return PatchTag(strings.TrimSpace(token))
}

func (pt PatchTag) split() (kind, label string) {
	var (
		s = string(pt)
	)
	if i := strings.Index(s, "-"); i >= 0 {
		return s[:i], s[i+1:]
	}
	if _, ok := PatchNameMap[strings.ToLower(s)]; ok {
		return s, ""
	}
	return "", s
}

func (pt PatchTag) GetType() PatchType {
	kind, _ := pt.split()
	return ParsePatchType(kind)
}

func (pt PatchTag) GetLabel() string {
	_, label := pt.split()
	return label
}

// Name is the patch name used in the mesh, the full tag is kept so that names stay unique
func (pt PatchTag) Name() string {
	return string(pt)
}
