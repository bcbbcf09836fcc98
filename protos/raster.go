// Package protos holds the wire messages of a raster stream, see raster.proto.
package protos

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// MaxMessageSize bounds a single delimited record.
const MaxMessageSize = 64 << 20

var ErrMessageTooLarge = errors.New("message too large")

// rasterDesc mirrors raster.proto.
var rasterDesc = func() protoreflect.MessageDescriptor {
	field := func(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
		return &descriptorpb.FieldDescriptorProto{
			Name:     proto.String(name),
			JsonName: proto.String(name),
			Number:   proto.Int32(number),
			Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
			Type:     typ.Enum(),
		}
	}
	fd, err := protodesc.NewFile(&descriptorpb.FileDescriptorProto{
		Name:    proto.String("raster.proto"),
		Package: proto.String("rasterchunk"),
		Syntax:  proto.String("proto3"),
		Options: &descriptorpb.FileOptions{GoPackage: proto.String("github.com/clarkmcc/rasterchunk/protos")},
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: proto.String("Raster"),
			Field: []*descriptorpb.FieldDescriptorProto{
				field("index", 1, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
				field("codec", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				field("image", 3, descriptorpb.FieldDescriptorProto_TYPE_BYTES),
			},
		}},
	}, nil)
	if err != nil {
		panic(err)
	}
	return fd.Messages().ByName("Raster")
}()

var (
	rasterIndex = rasterDesc.Fields().ByNumber(1)
	rasterCodec = rasterDesc.Fields().ByNumber(2)
	rasterImage = rasterDesc.Fields().ByNumber(3)
)

type Raster struct {
	Index uint32
	Codec string
	Image []byte
}

func (r *Raster) message() *dynamicpb.Message {
	msg := dynamicpb.NewMessage(rasterDesc)
	if r.Index != 0 {
		msg.Set(rasterIndex, protoreflect.ValueOfUint32(r.Index))
	}
	if r.Codec != "" {
		msg.Set(rasterCodec, protoreflect.ValueOfString(r.Codec))
	}
	if len(r.Image) > 0 {
		msg.Set(rasterImage, protoreflect.ValueOfBytes(r.Image))
	}
	return msg
}

func (r *Raster) fromMessage(msg *dynamicpb.Message) {
	*r = Raster{
		Index: uint32(msg.Get(rasterIndex).Uint()),
		Codec: msg.Get(rasterCodec).String(),
	}
	if msg.Has(rasterImage) {
		r.Image = msg.Get(rasterImage).Bytes()
	}
}

// fields are emitted in number order
var marshalOpts = proto.MarshalOptions{Deterministic: true}

// Marshal returns the protobuf encoding of r.
func (r *Raster) Marshal() ([]byte, error) {
	return marshalOpts.Marshal(r.message())
}

// Size returns the length of the protobuf encoding of r.
func (r *Raster) Size() int {
	return marshalOpts.Size(r.message())
}

// Unmarshal parses b into r. Unknown fields are skipped.
func (r *Raster) Unmarshal(b []byte) error {
	msg := dynamicpb.NewMessage(rasterDesc)
	if err := proto.Unmarshal(b, msg); err != nil {
		return err
	}
	r.fromMessage(msg)
	return nil
}

// WriteDelimited writes r prefixed with its varint encoded length.
func WriteDelimited(w io.Writer, r *Raster) error {
	_, err := protodelim.MarshalOptions{MarshalOptions: marshalOpts}.MarshalTo(w, r.message())
	return err
}

// ReadDelimited reads one length-prefixed record. It returns io.EOF only
// when the stream ends cleanly between records.
func ReadDelimited(r *bufio.Reader) (*Raster, error) {
	msg := dynamicpb.NewMessage(rasterDesc)
	err := protodelim.UnmarshalOptions{MaxSize: MaxMessageSize}.UnmarshalFrom(r, msg)
	if err != nil {
		var tooLarge *protodelim.SizeTooLargeError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, tooLarge.Size)
		}
		return nil, err
	}
	raster := &Raster{}
	raster.fromMessage(msg)
	return raster, nil
}
