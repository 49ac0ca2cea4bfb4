package source

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/runger/palette/internal/model"
)

// maxLineBytes bounds a single choice line read from a stream.
const maxLineBytes = 1 << 20

// Lines reads newline separated choices. Blank lines are skipped and
// trailing carriage returns dropped.
func Lines(r io.Reader) (Producer, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var items []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		items = append(items, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read choices: %w", err)
	}
	return Static(model.Strings(items...)), nil
}

// jsonChoice is the wire shape accepted by JSON.
type jsonChoice struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Value            any               `json:"value"`
	Description      string            `json:"description"`
	Icon             string            `json:"icon"`
	Tag              string            `json:"tag"`
	Preview          string            `json:"preview"`
	Group            string            `json:"group"`
	Skip             bool              `json:"skip"`
	Miss             bool              `json:"miss"`
	Pass             bool              `json:"pass"`
	DisableSubmit    bool              `json:"disableSubmit"`
	HideWithoutInput bool              `json:"hideWithoutInput"`
	Info             string            `json:"info"`
	Shortcode        []string          `json:"shortcode"`
	Shortcut         string            `json:"shortcut"`
	Choices          []json.RawMessage `json:"choices"`
}

// JSON reads a JSON array whose elements are strings or choice objects.
// Unknown object keys are ignored.
func JSON(r io.Reader) (Producer, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode choices: %w", err)
	}
	choices, err := decodeChoices(raw)
	if err != nil {
		return nil, err
	}
	items := make([]any, len(choices))
	for i, c := range choices {
		items[i] = c
	}
	normalized, err := model.Normalize(items...)
	if err != nil {
		return nil, fmt.Errorf("decode choices: %w", err)
	}
	return Static(normalized), nil
}

func decodeChoices(raw []json.RawMessage) ([]model.Choice, error) {
	out := make([]model.Choice, 0, len(raw))
	for i, msg := range raw {
		var s string
		if err := json.Unmarshal(msg, &s); err == nil {
			out = append(out, model.Choice{Name: s, Value: s})
			continue
		}

		var jc jsonChoice
		if err := json.Unmarshal(msg, &jc); err != nil {
			return nil, fmt.Errorf("decode choice %d: %w", i, err)
		}
		info := model.InfoMode(jc.Info)
		switch info {
		case "", model.InfoAlways, model.InfoOnNoChoices:
		default:
			return nil, fmt.Errorf("choice %d: unknown info mode %q", i, jc.Info)
		}
		nested, err := decodeChoices(jc.Choices)
		if err != nil {
			return nil, fmt.Errorf("choice %d: %w", i, err)
		}
		out = append(out, model.Choice{
			ID:               jc.ID,
			Name:             jc.Name,
			Value:            jc.Value,
			Description:      jc.Description,
			Icon:             jc.Icon,
			Tag:              jc.Tag,
			Preview:          model.Preview{Text: jc.Preview},
			Group:            jc.Group,
			Skip:             jc.Skip,
			Miss:             jc.Miss,
			Pass:             jc.Pass,
			DisableSubmit:    jc.DisableSubmit,
			HideWithoutInput: jc.HideWithoutInput,
			Info:             info,
			Shortcodes:       jc.Shortcode,
			Shortcut:         jc.Shortcut,
			Choices:          nested,
		})
	}
	return out, nil
}
