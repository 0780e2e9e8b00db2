package nifti

import (
	"encoding/binary"
	"fmt"
)

// headerSize is the fixed size of a NIfTI-1 header in bytes
const headerSize = 348

// NIfTI-1 datatype codes
const (
	dtUint8   = 2
	dtInt16   = 4
	dtInt32   = 8
	dtFloat32 = 16
	dtFloat64 = 64
	dtInt8    = 256
	dtUint16  = 512
	dtUint32  = 768
	dtInt64   = 1024
	dtUint64  = 1280
)

// header mirrors the on-disk NIfTI-1 header field by field.
type header struct {
	SizeofHdr    int32
	DataType     [10]byte
	DBName       [18]byte
	Extents      int32
	SessionError int16
	Regular      byte
	DimInfo      byte
	Dim          [8]int16

	IntentP1, IntentP2, IntentP3 float32
	IntentCode                   int16

	Datatype   int16
	Bitpix     int16
	SliceStart int16
	Pixdim     [8]float32
	VoxOffset  float32
	SclSlope   float32
	SclInter   float32
	SliceEnd   int16
	SliceCode  byte
	XYZTUnits  byte

	CalMax, CalMin float32
	SliceDuration  float32
	Toffset        float32
	Glmax, Glmin   int32

	Descrip [80]byte
	AuxFile [24]byte

	QformCode, SformCode         int16
	QuaternB, QuaternC, QuaternD float32
	QoffsetX, QoffsetY, QoffsetZ float32
	SrowX, SrowY, SrowZ          [4]float32

	IntentName [16]byte
	Magic      [4]byte
}

// byteOrder detects the header endianness from sizeof_hdr, which is always 348.
func byteOrder(raw []byte) (binary.ByteOrder, error) {
	switch {
	case binary.LittleEndian.Uint32(raw[:4]) == headerSize:
		return binary.LittleEndian, nil
	case binary.BigEndian.Uint32(raw[:4]) == headerSize:
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("not a NIfTI-1 header: sizeof_hdr is %d", binary.LittleEndian.Uint32(raw[:4]))
	}
}

// bytesPerVoxel returns the storage size of a datatype code.
func bytesPerVoxel(datatype int16) (int, error) {
	switch datatype {
	case dtUint8, dtInt8:
		return 1, nil
	case dtInt16, dtUint16:
		return 2, nil
	case dtInt32, dtUint32, dtFloat32:
		return 4, nil
	case dtInt64, dtUint64, dtFloat64:
		return 8, nil
	default:
		return 0, fmt.Errorf("unsupported NIfTI datatype %d", datatype)
	}
}

// scaling reports the slope and intercept to apply, or ok=false when the
// stored values are used as they are.
func (h *header) scaling() (slope, inter float64, ok bool) {
	slope, inter = float64(h.SclSlope), float64(h.SclInter)
	if slope == 0 || (slope == 1 && inter == 0) {
		return 1, 0, false
	}
	return slope, inter, true
}
