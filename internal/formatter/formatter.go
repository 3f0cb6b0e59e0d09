// package formatter renders room listings for the CLI in various formats (plain text, CSV, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/desertthunder/roomcast/internal/models"
	"github.com/desertthunder/roomcast/internal/shared"
)

// Format names an output format accepted by [Export].
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name. Matching is case-insensitive.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatText, FormatCSV, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want text, csv or json)", shared.ErrInvalidArgument, name)
	}
}

// RoomsToCSV converts rooms to CSV with columns: Code, GuestCanPause, VotesToSkip, CreatedAt, UpdatedAt
func RoomsToCSV(rooms []*models.Room) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Code", "GuestCanPause", "VotesToSkip", "CreatedAt", "UpdatedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, room := range rooms {
		record := []string{
			room.Code,
			strconv.FormatBool(room.GuestCanPause),
			strconv.Itoa(room.VotesToSkip),
			room.CreatedAt.UTC().Format(time.RFC3339),
			room.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// RoomsToText converts rooms to an aligned plain text table.
func RoomsToText(rooms []*models.Room) ([]byte, error) {
	if len(rooms) == 0 {
		return []byte("No rooms\n"), nil
	}

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "CODE\tGUEST PAUSE\tVOTES\tUPDATED")
	for _, room := range rooms {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
			room.Code, yesNo(room.GuestCanPause), room.VotesToSkip, room.UpdatedAt.UTC().Format(time.DateTime))
	}

	if err := tw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write table: %w", err)
	}
	fmt.Fprintf(&buf, "\n%d room(s)\n", len(rooms))

	return buf.Bytes(), nil
}

// RoomsToJSON converts rooms to an indented JSON array. Host keys are never included.
func RoomsToJSON(rooms []*models.Room) ([]byte, error) {
	if rooms == nil {
		rooms = []*models.Room{}
	}
	data, err := json.MarshalIndent(rooms, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rooms: %w", err)
	}
	return append(data, '\n'), nil
}

// Export writes rooms to w in the given format.
func Export(w io.Writer, rooms []*models.Room, format Format) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case FormatCSV:
		data, err = RoomsToCSV(rooms)
	case FormatJSON:
		data, err = RoomsToJSON(rooms)
	case FormatText, "":
		data, err = RoomsToText(rooms)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
