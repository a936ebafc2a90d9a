package kv

import (
	"bufio"
	"bytes"
	"github.com/pkg/errors"
	"io"
	"strconv"
)

// maxBlobSize bounds a single key or value stored in the log.
const maxBlobSize = 64 << 20

type parser struct {
	totalSize      int
	currentCmdSize int
	totalCommands  int
	currentLine    int
}

// parse replays every complete command found in r and returns the number of
// bytes those commands occupy. A command cut short by the end of the stream
// yields io.ErrUnexpectedEOF together with the size of the valid prefix.
func (p *parser) parse(r *bufio.Reader, cb func(cmd command) error) (int, error) {
	for {
		p.currentCmdSize = 0

		if _, err := r.Peek(1); err != nil {
			if err == io.EOF {
				return p.totalSize, nil
			}

			return p.totalSize, errors.Wrap(ErrSourceFileReadFailed, err.Error())
		}

		segments, err := p.resolveRespArray(r)
		if err != nil {
			return p.totalSize, err
		}

		cmdCode, err := p.resolveRespCommandCode(r)
		if err != nil {
			return p.totalSize, err
		}

		var cmd command
		switch cmdCode {
		case setCode:
			cmd, err = p.parseSetCommand(r, segments)
		case delCode:
			cmd, err = p.parseDelCommand(r, segments)
		default:
			err = errors.Wrapf(ErrCommandInvalid, "line #%d - unknown command", p.currentLine)
		}

		if err != nil {
			return p.totalSize, err
		}

		if err := cb(cmd); err != nil {
			return p.totalSize, err
		}

		p.totalCommands++
		p.totalSize += p.currentCmdSize
	}
}

// parseSetCommand - parses `set` command from serialization protocol
func (p *parser) parseSetCommand(r *bufio.Reader, segments int) (command, error) {
	if segments != 3 {
		return nil, errors.Wrapf(ErrCommandInvalid, "line #%d - set expects 3 segments, got %d", p.currentLine, segments)
	}

	key, err := p.resolveRespBlob(r)
	if err != nil {
		return nil, err
	}

	value, err := p.resolveRespBlob(r)
	if err != nil {
		return nil, err
	}

	return &setCmd{ent: newEntry(string(key), value)}, nil
}

// parseDelCommand - parses delete entry command from serialization protocol
func (p *parser) parseDelCommand(r *bufio.Reader, segments int) (command, error) {
	if segments != 2 {
		return nil, errors.Wrapf(ErrCommandInvalid, "line #%d - del expects 2 segments, got %d", p.currentLine, segments)
	}

	key, err := p.resolveRespBlob(r)
	if err != nil {
		return nil, err
	}

	return &deleteCmd{key: string(key)}, nil
}

func (p *parser) readLine(r *bufio.Reader) ([]byte, error) {
	p.currentLine++
	line, err := r.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}

		return nil, errors.Wrapf(ErrSourceFileReadFailed, "line #%d: %s", p.currentLine, err.Error())
	}

	if len(line) < 3 || line[len(line)-2] != '\r' {
		return nil, errors.Wrapf(ErrCommandInvalid, "line #%d - %q is malformed", p.currentLine, string(line))
	}

	p.currentCmdSize += len(line)

	return line, nil
}

func (p *parser) resolveRespArray(r *bufio.Reader) (int, error) {
	line, err := p.readLine(r)
	if err != nil {
		return 0, err
	}

	if line[0] != '*' {
		return 0, errors.Wrapf(
			ErrCommandInvalid,
			"line #%d - %q should start with *",
			p.currentLine, string(line))
	}

	n, err := strconv.Atoi(string(line[1 : len(line)-2]))
	if err != nil {
		return 0, errors.Wrapf(ErrCommandInvalid, "could not parse command size at line #%d %v", p.currentLine, err)
	}

	return n, nil
}

func (p *parser) resolveRespCommandCode(r *bufio.Reader) (commandCode, error) {
	line, err := p.readLine(r)
	if err != nil {
		return invalidCode, err
	}

	if line[0] != '+' {
		return invalidCode, errors.Wrapf(ErrCommandInvalid, "at line #%d, any command should start with + symbol", p.currentLine)
	}

	switch string(line[1 : len(line)-2]) {
	case setCommand:
		return setCode, nil
	case delCommand:
		return delCode, nil
	}

	return invalidCode, errors.Wrapf(ErrCommandInvalid, "at line #%d command [%s] is unknown", p.currentLine, string(line))
}

// resolveRespBlob - resolves a length prefixed blob from serialization protocol
func (p *parser) resolveRespBlob(r *bufio.Reader) ([]byte, error) {
	line, err := p.readLine(r)
	if err != nil {
		return nil, err
	}

	if line[0] != '$' {
		return nil, errors.Wrapf(ErrCommandInvalid, "line #%d - %q does not contain valid length", p.currentLine, string(line))
	}

	blobLen, err := strconv.Atoi(string(line[1 : len(line)-2]))
	if err != nil || blobLen < 0 {
		return nil, errors.Wrapf(ErrCommandInvalid, "line #%d - invalid blob length", p.currentLine)
	}

	if blobLen > maxBlobSize {
		return nil, errors.Wrapf(ErrCommandInvalid, "line #%d - blob length %d exceeds %d", p.currentLine, blobLen, maxBlobSize)
	}

	// grows with the bytes actually present, not with the declared length
	var blob bytes.Buffer
	n, err := io.CopyN(&blob, r, int64(blobLen)+2)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.ErrUnexpectedEOF
		}

		return nil, errors.Wrap(ErrSourceFileReadFailed, err.Error())
	}

	p.currentCmdSize += int(n)
	p.currentLine++

	b := blob.Bytes()
	if b[blobLen] != '\r' || b[blobLen+1] != '\n' {
		return nil, errors.Wrapf(ErrCommandInvalid, "line #%d - blob is not terminated", p.currentLine)
	}

	return b[:blobLen], nil
}
