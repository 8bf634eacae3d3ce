package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"designcal/internal/layout"
)

func newLayoutCmd(_ *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "layout FILE",
		Short: "Compute lane positions for a YAML or JSON event list",
		Long: `layout reads one day of events, either as a list or under an "events" key:

  - {id: a, start_time: "09:00", end_time: "10:00"}
  - {id: b, start_time: "09:30", end_time: "10:30"}

and prints the width and left offset (in percent) of each event. Use "-" to
read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := readEvents(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return printLayout(cmd.OutOrStdout(), events, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table or json")

	return cmd
}

func readEvents(stdin io.Reader, path string) ([]layout.Event, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return decodeEvents(data)
}

// decodeEvents accepts a bare list or a mapping with an "events" list.
// JSON input goes through the YAML decoder as well.
func decodeEvents(data []byte) ([]layout.Event, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	if len(doc.Content) == 0 {
		return []layout.Event{}, nil
	}

	var events []layout.Event
	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&events); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
	case yaml.MappingNode:
		var wrapped struct {
			Events []layout.Event `yaml:"events"`
		}
		if err := root.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
		events = wrapped.Events
	default:
		return nil, errors.New("decode events: expected a list of events")
	}

	seen := make(map[string]bool, len(events))
	var errs []error
	for i, ev := range events {
		if ev.ID == "" {
			errs = append(errs, fmt.Errorf("event #%d: missing id", i+1))
			continue
		}
		if seen[ev.ID] {
			errs = append(errs, fmt.Errorf("event #%d: duplicate id %q", i+1, ev.ID))
		}
		seen[ev.ID] = true
		if err := layout.ValidateEvent(ev); err != nil {
			errs = append(errs, fmt.Errorf("event #%d: %w", i+1, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return events, nil
}

type positionedEvent struct {
	layout.Event
	layout.Position
}

func printLayout(w io.Writer, events []layout.Event, format string) error {
	positions := layout.Compute(events)

	switch format {
	case "json":
		out := make([]positionedEvent, 0, len(events))
		for _, ev := range events {
			out = append(out, positionedEvent{Event: ev, Position: positions[ev.ID]})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)

	case "table":
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "START", "END", "LANE", "WIDTH %", "LEFT %")
		for _, ev := range events {
			p := positions[ev.ID]
			t.Row(
				ev.ID,
				ev.StartTime,
				ev.EndTime,
				fmt.Sprintf("%d/%d", p.Lane+1, p.Lanes),
				strconv.FormatFloat(p.WidthPercent, 'f', 2, 64),
				strconv.FormatFloat(p.LeftPercent, 'f', 2, 64),
			)
		}
		_, err := fmt.Fprintln(w, t.String())
		return err

	default:
		return fmt.Errorf("unknown format %q (want table or json)", format)
	}
}
