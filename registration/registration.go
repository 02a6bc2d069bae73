package registration

import (
	"bufio"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/image/math/f64"

	"github.com/zlttech/irfusion/frame"
)

// Table is the per-destination-pixel interpolation LUT: for every (x, y) in
// the base (infrared) geometry, RowTab/ColTab give the corresponding (row,
// column) coordinate to sample from the unregistered visible frame. Both
// are base_height*base_width float64 slices in row-major order, matching
// the source's row_inter_tab/col_inter_tab.
type Table struct {
	BaseWidth, BaseHeight int
	RowTab, ColTab        []float64
}

// BuildTable evaluates the affine transform at every destination pixel,
// mirroring cal_interp_table: col = a*x + b*y + c, row = d*x + e*y + f.
func BuildTable(m f64.Aff3, baseWidth, baseHeight int) *Table {
	t := &Table{
		BaseWidth:  baseWidth,
		BaseHeight: baseHeight,
		RowTab:     make([]float64, baseWidth*baseHeight),
		ColTab:     make([]float64, baseWidth*baseHeight),
	}
	for y := 0; y < baseHeight; y++ {
		for x := 0; x < baseWidth; x++ {
			fx, fy := float64(x), float64(y)
			idx := y*baseWidth + x
			t.ColTab[idx] = m[0]*fx + m[1]*fy + m[2]
			t.RowTab[idx] = m[3]*fx + m[4]*fy + m[5]
		}
	}
	return t
}

// Fingerprint is an FNV-1a hash of the control-point file bytes, stored as
// a header comment line in each cache file so a cache built for different
// control points is detected and ignored rather than silently reused. The
// hash covers no geometry; LoadTable catches a different base geometry only
// through its value count.
func Fingerprint(controlPointBytes []byte) string {
	h := fnv.New64a()
	h.Write(controlPointBytes)
	return fmt.Sprintf("%x", h.Sum64())
}

// SaveTable writes one of Table's two planes to a text file: a fingerprint
// comment line, then height rows of width space-separated floats, matching
// the source's save_interp_table layout with a fingerprint header prepended.
func SaveTable(path, fingerprint string, tab []float64, width, height int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("registration: creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := fmt.Fprintf(w, "# fingerprint %s\n", fingerprint); err != nil {
		return err
	}
	for y := 0; y < height; y++ {
		row := tab[y*width : y*width+width]
		for x, v := range row {
			if x > 0 {
				w.WriteByte(' ')
			}
			fmt.Fprintf(w, "%f", v)
		}
		w.WriteByte('\n')
	}
	return w.Flush()
}

// LoadTable reads a table previously written by SaveTable, rejecting it if
// the stored fingerprint does not match wantFingerprint.
func LoadTable(path, wantFingerprint string, width, height int) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !sc.Scan() {
		return nil, fmt.Errorf("registration: %s is empty", path)
	}
	header := sc.Text()
	const prefix = "# fingerprint "
	if !strings.HasPrefix(header, prefix) {
		return nil, fmt.Errorf("registration: %s missing fingerprint header", path)
	}
	got := strings.TrimPrefix(header, prefix)
	if got != wantFingerprint {
		return nil, fmt.Errorf("registration: %s fingerprint %s does not match %s", path, got, wantFingerprint)
	}

	out := make([]float64, 0, width*height)
	for sc.Scan() {
		for _, tok := range strings.Fields(sc.Text()) {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, fmt.Errorf("registration: %s: %w", path, err)
			}
			out = append(out, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) != width*height {
		return nil, fmt.Errorf("registration: %s has %d values, want %d", path, len(out), width*height)
	}
	return out, nil
}

// LoadOrBuildTable loads both table planes from rowPath/colPath if both
// exist and carry a matching fingerprint; otherwise it builds fresh tables
// from the affine matrix and writes them out, mirroring rm_regist_init's
// load-or-recompute-and-cache sequence.
func LoadOrBuildTable(m f64.Aff3, baseWidth, baseHeight int, fingerprint, rowPath, colPath string) (*Table, error) {
	rowTab, rowErr := LoadTable(rowPath, fingerprint, baseWidth, baseHeight)
	colTab, colErr := LoadTable(colPath, fingerprint, baseWidth, baseHeight)
	if rowErr == nil && colErr == nil {
		return &Table{BaseWidth: baseWidth, BaseHeight: baseHeight, RowTab: rowTab, ColTab: colTab}, nil
	}

	t := BuildTable(m, baseWidth, baseHeight)
	if err := SaveTable(rowPath, fingerprint, t.RowTab, baseWidth, baseHeight); err != nil {
		return nil, err
	}
	if err := SaveTable(colPath, fingerprint, t.ColTab, baseWidth, baseHeight); err != nil {
		return nil, err
	}
	return t, nil
}

// Warp reproduces rm_regist_warp_image: the destination Y plane is
// bilinearly sampled from src's Y plane through the table, leaving any
// destination pixel whose source footprint falls outside src's bounds
// untouched (the caller is expected to have pre-filled dst, typically with
// zero or a neutral value); the chroma planes are nearest-neighbor copied
// only at even destination (x, y), and are expected to already carry the
// neutral fill for the odd positions the copy never visits.
func Warp(t *Table, src *frame.YUV420, dst *frame.YUV420) error {
	if dst.Width != t.BaseWidth || dst.Height != t.BaseHeight {
		return fmt.Errorf("registration: dst %dx%d does not match table %dx%d", dst.Width, dst.Height, t.BaseWidth, t.BaseHeight)
	}

	srcY := src.YPlane()
	dstY := dst.YPlane()

	for y := 0; y < t.BaseHeight; y++ {
		for x := 0; x < t.BaseWidth; x++ {
			idx := y*t.BaseWidth + x
			rx := t.ColTab[idx]
			ry := t.RowTab[idx]

			tlcx := int(math.Floor(rx))
			tlcy := int(math.Floor(ry))
			lrcx := tlcx + 1
			lrcy := tlcy + 1

			if tlcx < 0 || tlcy < 0 || lrcx >= src.Width || lrcy >= src.Height {
				continue
			}

			nw := float64(srcY.At(tlcx, tlcy))
			ne := float64(srcY.At(lrcx, tlcy))
			sw := float64(srcY.At(tlcx, lrcy))
			se := float64(srcY.At(lrcx, lrcy))

			fracX := rx - float64(tlcx)
			fracY := ry - float64(tlcy)

			nval := fracX*ne + (1-fracX)*nw
			sval := fracX*se + (1-fracX)*sw
			v := (1-fracY)*nval + fracY*sval
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			dstY.Set(x, y, byte(v))

			if y%2 == 0 && x%2 == 0 {
				srcUVX, srcUVY := tlcx/2, tlcy/2
				dstUVX, dstUVY := x/2, y/2
				srcUVIdx := srcUVY*src.CStride + srcUVX
				dstUVIdx := dstUVY*dst.CStride + dstUVX
				if srcUVIdx >= 0 && srcUVIdx < len(src.Cb) && dstUVIdx >= 0 && dstUVIdx < len(dst.Cb) {
					dst.Cb[dstUVIdx] = src.Cb[srcUVIdx]
					dst.Cr[dstUVIdx] = src.Cr[srcUVIdx]
				}
			}
		}
	}
	return nil
}

// LoadControlPoints parses the plain-text control-point file format: one
// "x_visible y_visible x_base y_base" quadruple per line, at least 3 lines.
func LoadControlPoints(data []byte) ([]ControlPoint, error) {
	var points []ControlPoint
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("registration: malformed control point line %q", line)
		}
		vals := make([]float64, 4)
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("registration: control point line %q: %w", line, err)
			}
			vals[i] = v
		}
		points = append(points, ControlPoint{VisX: vals[0], VisY: vals[1], BaseX: vals[2], BaseY: vals[3]})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(points) < 3 {
		return nil, fmt.Errorf("registration: need at least 3 control points, got %d", len(points))
	}
	return points, nil
}
