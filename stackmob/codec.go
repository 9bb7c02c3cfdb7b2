package stackmob

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/iSamMahoozi/stackmob-sdk-go/sdkerr"
)

// Codec converts request arguments to a body and response bodies to values.
type Codec interface {
	// Marshal encodes args. An empty mapping must yield an empty body.
	Marshal(args *Arguments) ([]byte, error)
	// Unmarshal decodes a response body into a JSON value.
	Unmarshal(data []byte) (any, error)
}

// JSONCodec is the default Codec, backed by encoding/json.
type JSONCodec struct {
	// UseNumber decodes numbers as json.Number instead of float64.
	UseNumber bool
}

var _ Codec = JSONCodec{}

func (JSONCodec) Marshal(args *Arguments) ([]byte, error) {
	return JSONify(args)
}

func (c JSONCodec) Unmarshal(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if c.UseNumber {
		dec.UseNumber()
	}

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level JSON value")
	}
	return v, nil
}

// JSONify encodes args as a JSON object, keeping insertion order. A nil or
// empty mapping yields a nil body rather than "{}".
func JSONify(args *Arguments) ([]byte, error) {
	if args.Len() == 0 {
		return nil, nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return nil, sdkerr.NewSDKError().
			WithSubsys(subsys).
			WithOp("JSONify").
			WithKind(sdkerr.ErrSerialization).
			WithCause(err)
	}
	return b, nil
}
