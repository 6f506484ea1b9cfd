package terminal

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == In {
		return "in"
	}
	return "out"
}

// Frame is one message on the duplex channel.
type Frame struct {
	Dir     Direction
	Payload []byte
}

type inputEnvelope struct {
	Input string `json:"input"`
}

type outputEnvelope struct {
	Output *string `json:"output"`
	Error  *string `json:"error"`
}

func encodeInput(data []byte) ([]byte, error) {
	return json.Marshal(inputEnvelope{Input: string(data)})
}

// splitRunes returns how much of b ends on a UTF-8 boundary. A multi-byte
// sequence cut short at the end of b is left out so the caller can hold it
// until the rest arrives.
func splitRunes(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return len(b)
		}
		return i
	}
	return len(b)
}

// decodeOutput returns the bytes to write to the surface for an inbound
// payload. Anything that is not a JSON object passes through unchanged.
func decodeOutput(payload []byte) []byte {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return payload
	}
	var env outputEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return payload
	}
	switch {
	case env.Output != nil:
		return []byte(*env.Output)
	case env.Error != nil:
		return []byte(errorLine(*env.Error))
	}
	return nil
}

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiBold   = "\x1b[1;31m"
	ansiYellow = "\x1b[33m"
	ansiGreen  = "\x1b[1;32m"
)

func errorLine(msg string) string {
	return "\r\n" + ansiBold + "Error: " + msg + ansiReset + "\r\n"
}
