package kv

import (
	"bytes"
	"strconv"
)

const (
	setCommand = "set"
	delCommand = "del"
)

type commandCode int8

const (
	invalidCode commandCode = iota
	setCode
	delCode
)

// command is a single mutation that can be written to the log and
// replayed against the engine.
type command interface {
	serialize(buf *bytes.Buffer)
	apply(e *engine)
}

type setCmd struct {
	ent *entry
}

func (cmd *setCmd) serialize(buf *bytes.Buffer) {
	writeRespArray(3, buf)
	writeRespSimpleString([]byte(setCommand), buf)
	writeRespBlob([]byte(cmd.ent.Key), buf)
	writeRespBlob(cmd.ent.Value, buf)
}

func (cmd *setCmd) apply(e *engine) {
	e.putUnderLock(cmd.ent)
}

type deleteCmd struct {
	key string
}

func (cmd *deleteCmd) serialize(buf *bytes.Buffer) {
	writeRespArray(2, buf)
	writeRespSimpleString([]byte(delCommand), buf)
	writeRespBlob([]byte(cmd.key), buf)
}

func (cmd *deleteCmd) apply(e *engine) {
	e.removeUnderLock(cmd.key)
}

func writeRespArray(segments int, buf *bytes.Buffer) int {
	buf.WriteByte('*')
	s := strconv.FormatInt(int64(segments), 10)
	buf.WriteString(s)
	buf.WriteString("\r\n")

	return 3 + len(s)
}

func writeRespSimpleString(b []byte, buf *bytes.Buffer) int {
	buf.WriteByte('+')
	buf.Write(b)
	buf.WriteString("\r\n")
	return 3 + len(b)
}

func writeRespBlob(blob []byte, buf *bytes.Buffer) int {
	buf.WriteByte('$')
	l := strconv.FormatInt(int64(len(blob)), 10)
	buf.WriteString(l)
	buf.WriteString("\r\n")
	buf.Write(blob)
	buf.WriteString("\r\n")

	return 1 + len(l) + 2 + len(blob) + 2
}
