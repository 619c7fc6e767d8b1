package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// SendCommand is a parsed "send <amount> from <network> to <network>" command
type SendCommand struct {
	Amount      string
	Source      string
	Destination string
}

var sendPattern = regexp.MustCompile(`^(\d+\.?\d*)\s+(?:ETH\s+)?FROM\s+(\S+)\s+TO\s+(\S+)$`)

// ParseSendCommand parses a natural language send command
// Examples:
//   - "send 0.1 ETH from l2a to l2b"
//   - "1 from 901 to 902"
func ParseSendCommand(command string) (*SendCommand, error) {
	// Keywords are matched case-insensitively, network names keep their case
	fields := strings.Fields(strings.TrimSpace(command))
	for i, f := range fields {
		switch strings.ToUpper(f) {
		case "SEND", "ETH", "FROM", "TO":
			fields[i] = strings.ToUpper(f)
		}
	}
	if len(fields) > 0 && fields[0] == "SEND" {
		fields = fields[1:]
	}

	matches := sendPattern.FindStringSubmatch(strings.Join(fields, " "))
	if matches == nil {
		return nil, fmt.Errorf("invalid send command format. Expected: 'send <amount> [ETH] from <network> to <network>' (e.g., 'send 0.1 ETH from l2a to l2b')")
	}

	return &SendCommand{
		Amount:      matches[1],
		Source:      matches[2],
		Destination: matches[3],
	}, nil
}

// SplitTokens splits free text on commas and newlines, trims every token and
// drops the empty ones. Token order is preserved.
func SplitTokens(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
