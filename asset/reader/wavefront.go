package reader

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/ploc/asset"
	"github.com/achilleasa/ploc/log"
	"github.com/achilleasa/ploc/types"
)

// Max length of a single line in an obj file.
const maxLineLength = 1 << 20

type wavefrontReader struct {
	logger log.Logger

	opts Options

	// The parsed primitives.
	prims *Primitives

	// Vertices defined so far by the main file and all included files.
	vertexList []types.Vec3

	// An error stack that provides additional error information when
	// files include other files.
	errStack []string
}

func newWavefrontReader(opts Options) *wavefrontReader {
	return &wavefrontReader{
		logger:   log.New("wavefront reader"),
		opts:     opts,
		prims:    &Primitives{},
		errStack: make([]string, 0),
	}
}

// Read primitives from a wavefront obj file.
//
// Every face becomes a single primitive bounded by its vertices and centered
// at the center of its bounding box. Every
// segment of a polyline ("l" statement) becomes a primitive bounded by a
// cylinder with the configured strand radius. Files can include other obj
// files using the "call" statement.
func (r *wavefrontReader) Read(res *asset.Resource) (*Primitives, error) {
	r.logger.Noticef(`parsing primitives from "%s"`, res.Path())
	start := time.Now()

	if err := r.parse(res); err != nil {
		return nil, err
	}
	r.prims.computeBounds()

	r.logger.Noticef(
		"parsed %d primitives (%d faces, %d segments) from %d vertices in %d ms",
		r.prims.Len(), r.prims.Faces, r.prims.Segments, len(r.vertexList), time.Since(start).Milliseconds(),
	)
	return r.prims, nil
}

// Generate an error message that also includes any data in the error stack.
func (r *wavefrontReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)
	return errors.New(strings.Trim(
		fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n")),
		"\n",
	))
}

func (r *wavefrontReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

func (r *wavefrontReader) popFrame() {
	r.errStack = r.errStack[1:]
}

func (r *wavefrontReader) parse(res *asset.Resource) error {
	var lineNum int

	// Positive indices in each file are relative to the vertices defined
	// before the file was included.
	relVertexOffset := len(r.vertexList)

	scanner := bufio.NewScanner(res)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "call":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "call"; expected 1 argument; got %d`, len(lineTokens)-1)
			}

			r.pushFrame(fmt.Sprintf("referenced from %s:%d [call]", res.Path(), lineNum))
			incRes, err := asset.NewResource(lineTokens[1], res)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			err = r.parse(incRes)
			incRes.Close()
			if err != nil {
				return err
			}
			r.popFrame()
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.vertexList = append(r.vertexList, v)
		case "f":
			if err := r.parseFace(lineTokens, relVertexOffset); err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
		case "l":
			if err := r.parsePolyline(lineTokens, relVertexOffset); err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return r.emitError(res.Path(), lineNum, "%s", err.Error())
	}
	return nil
}

// Parse a face definition. Vertices may use the v, v/vt, v//vn or v/vt/vn
// syntax; only the vertex index is used.
func (r *wavefrontReader) parseFace(lineTokens []string, relVertexOffset int) error {
	if len(lineTokens) < 4 {
		return fmt.Errorf(`unsupported syntax for "f"; expected at least 3 vertices; got %d`, len(lineTokens)-1)
	}

	vertices, err := r.selectVertices(lineTokens[1:], relVertexOffset)
	if err != nil {
		return err
	}

	box := types.BoxFromPoints(vertices...)
	r.prims.add(box, types.CylinderFromPoints(vertices...), box.Center())
	r.prims.Faces++
	return nil
}

// Parse a polyline definition generating one primitive per segment.
func (r *wavefrontReader) parsePolyline(lineTokens []string, relVertexOffset int) error {
	if len(lineTokens) < 3 {
		return fmt.Errorf(`unsupported syntax for "l"; expected at least 2 vertices; got %d`, len(lineTokens)-1)
	}

	vertices, err := r.selectVertices(lineTokens[1:], relVertexOffset)
	if err != nil {
		return err
	}

	for i := 1; i < len(vertices); i++ {
		p0, p1 := vertices[i-1], vertices[i]
		cylinder := types.CylinderFromSegment(p0, p1, r.opts.StrandRadius)
		r.prims.add(cylinder.AABB(), cylinder, p0.Add(p1).Mul(0.5))
		r.prims.Segments++
	}
	return nil
}

func (r *wavefrontReader) selectVertices(tokens []string, relVertexOffset int) ([]types.Vec3, error) {
	vertices := make([]types.Vec3, len(tokens))
	for i, token := range tokens {
		vertexToken, _, _ := strings.Cut(token, "/")
		index, err := selectVertexIndex(vertexToken, len(r.vertexList), relVertexOffset)
		if err != nil {
			return nil, err
		}
		vertices[i] = r.vertexList[index]
	}
	return vertices, nil
}

// Given a vertex index token calculate the proper offset into the vertex
// list. Negative indices reference vertices from the end of the list.
func selectVertexIndex(indexToken string, vertexListLen int, relOffset int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var offset int
	switch {
	case index < 0:
		offset = vertexListLen + int(index)
	case index > 0:
		offset = relOffset + int(index-1)
	default:
		return -1, fmt.Errorf("vertex index 0 is not valid")
	}
	if offset < 0 || offset >= vertexListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return offset, nil
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf(`unsupported syntax for "%s"; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		if math.IsNaN(coord) || math.IsInf(coord, 0) {
			return v, fmt.Errorf(`non-finite coordinate "%s" for "%s"`, lineTokens[tokIdx], lineTokens[0])
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
