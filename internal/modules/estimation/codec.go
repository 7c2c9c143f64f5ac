package estimation

import (
	"encoding/json"
	"fmt"
	"mime"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Content types understood by the estimation service
const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgpack = "application/msgpack"
)

// Codec serializes problems and results on the wire
type Codec interface {
	Name() string
	ContentType() string
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

type jsonCodec struct{}

func (jsonCodec) Name() string                               { return "json" }
func (jsonCodec) ContentType() string                        { return ContentTypeJSON }
func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

type msgpackCodec struct{}

func (msgpackCodec) Name() string                               { return "msgpack" }
func (msgpackCodec) ContentType() string                        { return ContentTypeMsgpack }
func (msgpackCodec) Marshal(v interface{}) ([]byte, error)      { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v interface{}) error { return msgpack.Unmarshal(data, v) }

// JSON and Msgpack are the available codecs
var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

// CodecByName returns the codec registered under name
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", JSON.Name():
		return JSON, nil
	case Msgpack.Name():
		return Msgpack, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// CodecForContentType picks a codec from a Content-Type or Accept header value,
// falling back to JSON
func CodecForContentType(header string) Codec {
	if codec, ok := AcceptedCodec(header); ok {
		return codec
	}
	return JSON
}

// AcceptedCodec returns the codec of the first media type in a comma-separated
// header value that a codec serves. Wildcards and unknown types are skipped.
func AcceptedCodec(header string) (Codec, bool) {
	for _, part := range strings.Split(header, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mediaType {
		case ContentTypeMsgpack, "application/x-msgpack":
			return Msgpack, true
		case ContentTypeJSON:
			return JSON, true
		}
	}
	return nil, false
}
