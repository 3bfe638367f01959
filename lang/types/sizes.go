package types

import "unsafe"

// Approximate per-object sizes credited against the collection threshold.
// Variable-length payloads (string bytes, closure upvalue slots, tuple
// elements, map-iterator keys) are added at the allocation site; vector
// elements, appended after allocation, are not counted.
const (
	sizeString      = int(unsafe.Sizeof(ObjString{}))
	sizeStringIter  = int(unsafe.Sizeof(ObjStringIter{}))
	sizeFunction    = int(unsafe.Sizeof(ObjFunction{}))
	sizeNative      = int(unsafe.Sizeof(ObjNative{}))
	sizeClosure     = int(unsafe.Sizeof(ObjClosure{}))
	sizeUpvalue     = int(unsafe.Sizeof(ObjUpvalue{}))
	sizeClass       = int(unsafe.Sizeof(ObjClass{}))
	sizeInstance    = int(unsafe.Sizeof(ObjInstance{}))
	sizeBoundMethod = int(unsafe.Sizeof(ObjBoundMethod{}))
	sizeVec         = int(unsafe.Sizeof(ObjVec{}))
	sizeVecIter     = int(unsafe.Sizeof(ObjVecIter{}))
	sizeRange       = int(unsafe.Sizeof(ObjRange{}))
	sizeRangeIter   = int(unsafe.Sizeof(ObjRangeIter{}))
	sizeHashMap     = int(unsafe.Sizeof(ObjHashMap{}))
	sizeMapIter     = int(unsafe.Sizeof(ObjMapIter{}))
	sizeTuple       = int(unsafe.Sizeof(ObjTuple{}))
)
