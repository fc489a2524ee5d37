package asset

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Files with this extension are transparently decompressed.
const CompressedExt = ".zst"

// Resource wraps a local file or a file streamed over http/https.
type Resource struct {
	io.ReadCloser
	url *url.URL
}

// Returns the path to this resource.
func (r *Resource) Path() string {
	return r.url.String()
}

// Returns the file name of this resource without the compression extension.
func (r *Resource) Name() string {
	return strings.TrimSuffix(filepath.Base(r.url.Path), CompressedExt)
}

// Returns true if the Resource is streamed over http/https.
func (r *Resource) IsRemote() bool {
	return r.url.Scheme != ""
}

// Open a resource. If relTo is specified and pathToResource does not define a
// scheme, the path is resolved relative to the directory of relTo.
//
// Resources whose path ends in ".zst" are decompressed while being read. The
// caller must close the returned resource.
func NewResource(pathToResource string, relTo *Resource) (*Resource, error) {
	resURL, err := resolve(pathToResource, relTo)
	if err != nil {
		return nil, err
	}

	stream, err := open(resURL)
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(resURL.Path, CompressedExt) {
		dec, err := zstd.NewReader(stream)
		if err != nil {
			stream.Close()
			return nil, fmt.Errorf("resource: could not decompress '%s': %s", resURL.String(), err)
		}
		stream = &compressedStream{Decoder: dec, source: stream}
	}

	return &Resource{
		ReadCloser: stream,
		url:        resURL,
	}, nil
}

// Create a resource from a reader.
func NewResourceFromStream(name string, source io.Reader) *Resource {
	resURL, _ := url.Parse(name)
	return &Resource{
		ReadCloser: io.NopCloser(source),
		url:        resURL,
	}
}

func resolve(pathToResource string, relTo *Resource) (*url.URL, error) {
	resURL, err := url.Parse(strings.ReplaceAll(pathToResource, `\`, `/`))
	if err != nil {
		return nil, err
	}
	if resURL.Scheme != "" || relTo == nil {
		return resURL, nil
	}

	// Clone the parent url and replace the last path segment
	relPath := resURL.Path
	resURL, _ = url.Parse(relTo.url.String())
	prefix := resURL.Path
	if !relTo.IsRemote() {
		prefix, err = filepath.Abs(relTo.url.String())
		if err != nil {
			return nil, fmt.Errorf("resource: could not detect abs path for %s; %s", relTo.url.String(), err.Error())
		}
	}
	resURL.Path = filepath.Dir(prefix) + "/" + relPath
	return resURL, nil
}

func open(resURL *url.URL) (io.ReadCloser, error) {
	switch resURL.Scheme {
	case "":
		return os.Open(filepath.Clean(resURL.Path))
	case "http", "https":
		resp, err := http.Get(resURL.String())
		if err != nil {
			return nil, fmt.Errorf("resource: could not fetch '%s': %s", resURL.String(), err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("resource: could not fetch '%s': status %d", resURL.String(), resp.StatusCode)
		}
		return resp.Body, nil
	}
	return nil, fmt.Errorf("resource: unsupported scheme '%s'", resURL.Scheme)
}

// compressedStream decodes a zstd stream and closes both the decoder and
// the underlying source.
type compressedStream struct {
	*zstd.Decoder
	source io.Closer
}

func (s *compressedStream) Close() error {
	s.Decoder.Close()
	return s.source.Close()
}
