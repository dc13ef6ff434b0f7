// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package wire encodes and decodes the two command formats the bridge speaks:
// flat XML capture commands on the broadcast side and JSON bodies on the
// command API side. Everything here is pure; no I/O.
package wire

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ManuGH/mocapsync/internal/command"
)

// MaxDatagramSize bounds a single broadcast payload.
const MaxDatagramSize = 64 * 1024

const valueAttr = "VALUE"

// ErrNotCapture reports a well-formed payload that is not a capture command.
// Other traffic shares the broadcast port, so this is not a failure.
var ErrNotCapture = errors.New("wire: not a capture command")

// ErrMalformed is the sentinel behind every DecodeError.
var ErrMalformed = errors.New("wire: malformed broadcast payload")

// DecodeError carries the raw reason a broadcast payload was rejected.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", ErrMalformed, e.Reason, e.Err)
	}
	return fmt.Sprintf("%v: %s", ErrMalformed, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return ErrMalformed
}

// Codec converts recording commands to and from broadcast payloads.
type Codec interface {
	EncodeBroadcast(cmd command.RecordingCommand) []byte
	DecodeBroadcast(payload []byte) (command.RecordingCommand, error)
}

// LegacyCodec reproduces the capture protocol byte for byte. Field values
// are inserted verbatim: peers expect the unescaped form, so values must not
// contain '<', '>' or '"'.
type LegacyCodec struct{}

var _ Codec = LegacyCodec{}

// EncodeBroadcast renders cmd with the default codec.
func EncodeBroadcast(cmd command.RecordingCommand) []byte {
	return LegacyCodec{}.EncodeBroadcast(cmd)
}

// DecodeBroadcast parses payload with the default codec.
func DecodeBroadcast(payload []byte) (command.RecordingCommand, error) {
	return LegacyCodec{}.DecodeBroadcast(payload)
}

// EncodeBroadcast renders the flat tag-per-field document.
func (LegacyCodec) EncodeBroadcast(cmd command.RecordingCommand) []byte {
	root := cmd.Kind.Element()

	var b bytes.Buffer
	b.Grow(256)
	b.WriteString("<" + root + ">")
	writeLeaf(&b, "TimeCode", cmd.Timecode)
	writeLeaf(&b, "Name", cmd.Name)
	writeLeaf(&b, "Notes", cmd.Notes)
	writeLeaf(&b, "Description", cmd.Description)
	writeLeaf(&b, "DatabasePath", cmd.DatabasePath)
	writeLeaf(&b, "PacketID", strconv.Itoa(cmd.PacketID))
	writeLeaf(&b, "ProcessID", strconv.Itoa(int(cmd.Origin)))
	b.WriteString("</" + root + ">")
	return b.Bytes()
}

func writeLeaf(b *bytes.Buffer, tag, value string) {
	b.WriteString("<" + tag + ` VALUE="` + value + `"/>`)
}

type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []node     `xml:",any"`
}

func (n *node) child(name string) *node {
	for i := range n.Children {
		if n.Children[i].XMLName.Local == name {
			return &n.Children[i]
		}
	}
	return nil
}

func (n *node) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// DecodeBroadcast locates CaptureStart/ProcessID, then CaptureStop/ProcessID.
func (LegacyCodec) DecodeBroadcast(payload []byte) (command.RecordingCommand, error) {
	if len(payload) > MaxDatagramSize {
		return command.RecordingCommand{}, &DecodeError{Reason: fmt.Sprintf("payload too large (%d bytes)", len(payload))}
	}

	var root node
	dec := xml.NewDecoder(bytes.NewReader(payload))
	dec.Strict = true
	// No entity expansion beyond the XML builtins.
	dec.Entity = map[string]string{}
	if err := dec.Decode(&root); err != nil {
		return command.RecordingCommand{}, &DecodeError{Reason: "parse xml", Err: err}
	}
	if err := expectEOF(dec); err != nil {
		return command.RecordingCommand{}, err
	}

	var kind command.Kind
	var pidNode *node
	switch root.XMLName.Local {
	case command.Start.Element():
		kind = command.Start
		pidNode = root.child("ProcessID")
	case command.Stop.Element():
		kind = command.Stop
		pidNode = root.child("ProcessID")
	}
	if pidNode == nil {
		return command.RecordingCommand{}, ErrNotCapture
	}

	rawPID, ok := pidNode.attr(valueAttr)
	if !ok {
		return command.RecordingCommand{}, &DecodeError{Reason: "ProcessID has no VALUE attribute"}
	}
	pid, err := strconv.Atoi(strings.TrimSpace(rawPID))
	if err != nil {
		return command.RecordingCommand{}, &DecodeError{Reason: "ProcessID is not an integer", Err: err}
	}

	name, err := leafValue(&root, "Name", command.DefaultName)
	if err != nil {
		return command.RecordingCommand{}, err
	}
	timecode, err := leafValue(&root, "TimeCode", command.DefaultTimecode)
	if err != nil {
		return command.RecordingCommand{}, err
	}

	cmd := command.RecordingCommand{
		Kind:     kind,
		Name:     name,
		Timecode: timecode,
		Origin:   command.ProcessID(pid),
	}
	if n := root.child("Notes"); n != nil {
		cmd.Notes, _ = n.attr(valueAttr)
	}
	if n := root.child("Description"); n != nil {
		cmd.Description, _ = n.attr(valueAttr)
	}
	if n := root.child("DatabasePath"); n != nil {
		cmd.DatabasePath, _ = n.attr(valueAttr)
	}
	if n := root.child("PacketID"); n != nil {
		if v, ok := n.attr(valueAttr); ok {
			cmd.PacketID, _ = strconv.Atoi(strings.TrimSpace(v))
		}
	}
	return cmd, nil
}

// expectEOF rejects anything after the root element other than whitespace,
// comments and processing instructions.
func expectEOF(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &DecodeError{Reason: "parse xml", Err: err}
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return &DecodeError{Reason: "text after root element"}
			}
		default:
			return &DecodeError{Reason: "content after root element"}
		}
	}
}

// leafValue returns the VALUE of the named child, or def when the node is
// absent. A node without VALUE is malformed.
func leafValue(root *node, name, def string) (string, error) {
	n := root.child(name)
	if n == nil {
		return def, nil
	}
	v, ok := n.attr(valueAttr)
	if !ok {
		return "", &DecodeError{Reason: name + " has no VALUE attribute"}
	}
	return v, nil
}
