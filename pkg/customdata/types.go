package customdata

import (
	"fmt"
	"strconv"
	"strings"
)

// LayerType is the runtime tag stored in CustomDataLayer.type.
type LayerType int32

const (
	MVert           LayerType = 0
	MDeformVert     LayerType = 2
	MEdge           LayerType = 3
	MFace           LayerType = 4
	MTFace          LayerType = 5
	MCol            LayerType = 6
	OrigIndex       LayerType = 7
	Normal          LayerType = 8
	PropFloat       LayerType = 10
	PropInt32       LayerType = 11
	PropString      LayerType = 12
	OrigSpace       LayerType = 13
	Orco            LayerType = 14
	MTexPoly        LayerType = 15
	MLoopUV         LayerType = 16
	PropByteColor   LayerType = 17
	Tangent         LayerType = 18
	MDisps          LayerType = 19
	PreviewMCol     LayerType = 20
	ClothOrco       LayerType = 23
	MPoly           LayerType = 25
	MLoop           LayerType = 26
	ShapeKeyIndex   LayerType = 27
	ShapeKey        LayerType = 28
	BWeight         LayerType = 29
	Crease          LayerType = 30
	OrigSpaceMLoop  LayerType = 31
	PreviewMLoopCol LayerType = 32
	BMElemPyPtr     LayerType = 33
	PaintMask       LayerType = 34
	GridPaintMask   LayerType = 35
	MVertSkin       LayerType = 36
	FreestyleEdge   LayerType = 37
	FreestyleFace   LayerType = 38
	MLoopTangent    LayerType = 39
	TessLoopNormal  LayerType = 40
	CustomLoopNorm  LayerType = 41
	SculptFaceSets  LayerType = 42
	PropInt8        LayerType = 45
	PropInt32_2D    LayerType = 46
	PropColor       LayerType = 47
	PropFloat3      LayerType = 48
	PropFloat2      LayerType = 49
	PropBool        LayerType = 50
	PropQuaternion  LayerType = 52
)

// shapes maps each layer type to its element shape: a primitive ("float"),
// a primitive vector ("float:3") or a schema struct name, optionally with a
// repeat count ("MCol:4").
var shapes = map[LayerType]string{
	MVert:           "MVert",
	MDeformVert:     "MDeformVert",
	MEdge:           "MEdge",
	MFace:           "MFace",
	MTFace:          "MTFace",
	MCol:            "MCol",
	OrigIndex:       "int",
	Normal:          "float:4",
	PropFloat:       "float",
	PropInt32:       "int",
	PropString:      "MStringProperty",
	OrigSpace:       "OrigSpaceFace",
	Orco:            "float:4",
	MTexPoly:        "MTexPoly",
	MLoopUV:         "MLoopUV",
	PropByteColor:   "MLoopCol",
	Tangent:         "float:16",
	MDisps:          "MDisps",
	PreviewMCol:     "MCol:4",
	ClothOrco:       "float:3",
	MLoop:           "MLoop",
	MPoly:           "MPoly",
	ShapeKeyIndex:   "int",
	ShapeKey:        "float:3",
	BWeight:         "float",
	Crease:          "float",
	OrigSpaceMLoop:  "OrigSpaceLoop",
	PreviewMLoopCol: "MLoopCol",
	BMElemPyPtr:     "void*",
	PaintMask:       "float",
	GridPaintMask:   "GridPaintMask",
	MVertSkin:       "MVertSkin",
	FreestyleEdge:   "FreestyleEdge",
	FreestyleFace:   "FreestyleFace",
	MLoopTangent:    "float:4",
	TessLoopNormal:  "short:12",
	CustomLoopNorm:  "short:2",
	SculptFaceSets:  "int",
	PropInt8:        "byte",
	PropInt32_2D:    "int:2",
	PropColor:       "float:4",
	PropFloat3:      "float:3",
	PropFloat2:      "float:2",
	PropBool:        "byte",
	PropQuaternion:  "float:4",
}

// Shape returns the element shape registered for t.
func Shape(t LayerType) (string, bool) {
	s, ok := shapes[t]
	return s, ok
}

func (t LayerType) String() string {
	if s, ok := shapes[t]; ok {
		return fmt.Sprintf("%d(%s)", int32(t), s)
	}
	return strconv.Itoa(int(t))
}

// primitiveSizes holds the byte width of primitive shape names.
var primitiveSizes = map[string]int{
	"byte":   1,
	"short":  2,
	"int":    4,
	"float":  4,
	"double": 8,
	"void*":  8,
}

// splitShape separates "base:N" into base and repeat count.
func splitShape(shape string) (string, int, error) {
	base, dim, ok := strings.Cut(shape, ":")
	if !ok {
		return shape, 1, nil
	}
	n, err := strconv.Atoi(dim)
	if err != nil || n <= 0 {
		return "", 0, fmt.Errorf("bad shape %q", shape)
	}
	return base, n, nil
}
