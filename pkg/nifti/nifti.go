// Package nifti reads and writes single-file NIfTI-1 volumes (.nii and
// gzip-compressed .nii.gz) as models.Volume.
//
// Only the first 3D volume of a 4D series is read, and the intensity scaling
// stored in the header is applied. Orientation (qform/sform) is ignored: data
// is returned in storage order, which is the (x, y, z) order the detector uses.
package nifti

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"skulldetect/internal/models"
)

// Read loads a volume from a .nii or .nii.gz file. Compression is detected
// from the content, not the file name.
func Read(path string) (*models.Volume, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	vol, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return vol, nil
}

// Decode reads a NIfTI-1 volume from r, decompressing gzip input.
func Decode(r io.Reader) (*models.Volume, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var src io.Reader = br
	if magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer zr.Close()
		src = zr
	}

	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(src, raw); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	order, err := byteOrder(raw)
	if err != nil {
		return nil, err
	}

	var hdr header
	if err := binary.Read(bytes.NewReader(raw), order, &hdr); err != nil {
		return nil, fmt.Errorf("failed to decode header: %w", err)
	}

	switch string(hdr.Magic[:3]) {
	case "n+1":
	case "ni1":
		return nil, fmt.Errorf("header/image pairs (.hdr/.img) are not supported")
	default:
		return nil, fmt.Errorf("bad NIfTI magic %q", hdr.Magic[:])
	}

	ndim := int(hdr.Dim[0])
	if ndim < 3 || ndim > 7 {
		return nil, fmt.Errorf("expected at least 3 dimensions, header has %d", ndim)
	}
	width, height, depth := int(hdr.Dim[1]), int(hdr.Dim[2]), int(hdr.Dim[3])
	if width <= 0 || height <= 0 || depth <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%dx%d", width, height, depth)
	}

	size, err := bytesPerVoxel(hdr.Datatype)
	if err != nil {
		return nil, err
	}

	offset := int64(hdr.VoxOffset)
	if offset < headerSize {
		offset = headerSize
	}
	if _, err := io.CopyN(io.Discard, src, offset-headerSize); err != nil {
		return nil, fmt.Errorf("failed to skip header extensions: %w", err)
	}

	vol := models.NewVolume(width, height, depth)
	vol.VoxelSize.X = voxelSize(hdr.Pixdim[1])
	vol.VoxelSize.Y = voxelSize(hdr.Pixdim[2])
	vol.VoxelSize.Z = voxelSize(hdr.Pixdim[3])

	data := make([]byte, len(vol.Data)*size)
	if _, err := io.ReadFull(src, data); err != nil {
		return nil, fmt.Errorf("failed to read voxel data: %w", err)
	}
	decodeVoxels(vol.Data, data, hdr.Datatype, order)

	if slope, inter, ok := hdr.scaling(); ok {
		for i, v := range vol.Data {
			vol.Data[i] = v*slope + inter
		}
	}

	return vol, nil
}

func voxelSize(v float32) float64 {
	if v <= 0 || math.IsNaN(float64(v)) {
		return 1
	}
	return float64(v)
}

// decodeVoxels converts raw voxel bytes into dst. The datatype has already
// been validated by bytesPerVoxel.
func decodeVoxels(dst []float64, raw []byte, datatype int16, order binary.ByteOrder) {
	for i := range dst {
		switch datatype {
		case dtUint8:
			dst[i] = float64(raw[i])
		case dtInt8:
			dst[i] = float64(int8(raw[i]))
		case dtInt16:
			dst[i] = float64(int16(order.Uint16(raw[i*2:])))
		case dtUint16:
			dst[i] = float64(order.Uint16(raw[i*2:]))
		case dtInt32:
			dst[i] = float64(int32(order.Uint32(raw[i*4:])))
		case dtUint32:
			dst[i] = float64(order.Uint32(raw[i*4:]))
		case dtFloat32:
			dst[i] = float64(math.Float32frombits(order.Uint32(raw[i*4:])))
		case dtInt64:
			dst[i] = float64(int64(order.Uint64(raw[i*8:])))
		case dtUint64:
			dst[i] = float64(order.Uint64(raw[i*8:]))
		case dtFloat64:
			dst[i] = math.Float64frombits(order.Uint64(raw[i*8:]))
		}
	}
}

// Write saves vol as a little-endian float32 NIfTI-1 file, gzip-compressed
// when path ends in ".gz".
func Write(path string, vol *models.Volume) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create NIfTI file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	if !strings.HasSuffix(path, ".gz") {
		if err := encode(file, vol, dtFloat32, binary.LittleEndian); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		return nil
	}

	zw := gzip.NewWriter(file)
	if err := encode(zw, vol, dtFloat32, binary.LittleEndian); err != nil {
		zw.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return nil
}

// encode writes header, an empty extension block and voxel data.
func encode(w io.Writer, vol *models.Volume, datatype int16, order binary.ByteOrder) error {
	if err := vol.Validate(); err != nil {
		return err
	}
	size, err := bytesPerVoxel(datatype)
	if err != nil {
		return err
	}

	hdr := header{
		SizeofHdr: headerSize,
		Regular:   'r',
		Dim:       [8]int16{3, int16(vol.Width), int16(vol.Height), int16(vol.Depth), 1, 1, 1, 1},
		Datatype:  datatype,
		Bitpix:    int16(size * 8),
		Pixdim: [8]float32{1, float32(vol.VoxelSize.X), float32(vol.VoxelSize.Y), float32(vol.VoxelSize.Z),
			1, 1, 1, 1},
		VoxOffset: headerSize + 4,
		Magic:     [4]byte{'n', '+', '1', 0},
	}
	if err := binary.Write(w, order, &hdr); err != nil {
		return err
	}
	if _, err := w.Write(make([]byte, 4)); err != nil {
		return err
	}

	buf := make([]byte, len(vol.Data)*size)
	for i, v := range vol.Data {
		switch datatype {
		case dtUint8:
			buf[i] = uint8(v)
		case dtInt8:
			buf[i] = uint8(int8(v))
		case dtInt16:
			order.PutUint16(buf[i*2:], uint16(int16(v)))
		case dtUint16:
			order.PutUint16(buf[i*2:], uint16(v))
		case dtInt32:
			order.PutUint32(buf[i*4:], uint32(int32(v)))
		case dtUint32:
			order.PutUint32(buf[i*4:], uint32(v))
		case dtFloat32:
			order.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
		case dtInt64:
			order.PutUint64(buf[i*8:], uint64(int64(v)))
		case dtUint64:
			order.PutUint64(buf[i*8:], uint64(v))
		case dtFloat64:
			order.PutUint64(buf[i*8:], math.Float64bits(v))
		}
	}
	_, err = w.Write(buf)
	return err
}
