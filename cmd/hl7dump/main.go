// hl7dump inspects HL7v2 message files: a structure overview by default
// (positions and shapes, no values), full values on request, with segment and
// field filters, plus a raw pipe-counting verify view for settling field
// positions. Field names come from the declarative segment schema.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/danmuck/hl7ctl/internal/hl7"
)

func main() {
	values := flag.Bool("values", false, "show field values (may contain PHI)")
	segment := flag.String("segment", "", "filter to one segment type, e.g. OBX")
	field := flag.String("field", "", "show one field across messages, e.g. RXA.6")
	verify := flag.String("verify", "", "verify a field position by raw pipe counting, e.g. RXA.20")
	schemaPath := flag.String("schema", "", "TOML schema extensions for site-local segments")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: hl7dump [flags] file")
		os.Exit(2)
	}

	schema := hl7.DefaultSchema()
	if *schemaPath != "" {
		if err := schema.LoadExtensions(*schemaPath); err != nil {
			fmt.Fprintf(os.Stderr, "hl7dump: %v\n", err)
			os.Exit(1)
		}
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "hl7dump: %v\n", err)
		os.Exit(1)
	}

	messages := splitMessages(string(data))
	if len(messages) == 0 {
		fmt.Fprintln(os.Stderr, "hl7dump: no HL7v2 messages found")
		os.Exit(1)
	}
	fmt.Printf("found %d message(s)\n\n", len(messages))

	for i, text := range messages {
		if len(messages) > 1 {
			fmt.Printf("=== message %d of %d ===\n", i+1, len(messages))
		}
		if *verify != "" {
			verifyField(text, *verify)
			continue
		}
		msg, err := hl7.Parse(text)
		if err != nil {
			fmt.Printf("  unparsable: %v\n", err)
			continue
		}
		switch {
		case *field != "":
			dumpField(msg, *field)
		case *values:
			dumpValues(msg, schema, *segment)
		default:
			dumpStructure(msg)
		}
	}
}

// splitMessages treats each MSH line as the start of a new message.
func splitMessages(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\r")
	content = strings.ReplaceAll(content, "\n", "\r")

	var messages []string
	var current []string
	for _, line := range strings.Split(content, "\r") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "MSH") && len(current) > 0 {
			messages = append(messages, strings.Join(current, "\r"))
			current = nil
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		messages = append(messages, strings.Join(current, "\r"))
	}
	return messages
}

func dumpStructure(msg hl7.Message) {
	for _, seg := range msg.Segments {
		positions := sortedPositions(seg.Fields)
		shapes := make([]string, 0, len(positions))
		for _, pos := range positions {
			if seg.ID == "MSH" && (pos == 1 || pos == 2) {
				continue
			}
			v, _ := seg.Field(pos)
			shapes = append(shapes, fmt.Sprintf("%d%s", pos, describeShape(v)))
		}
		fmt.Printf("  %s populated: %s\n", seg.ID, strings.Join(shapes, ", "))
	}
}

func describeShape(v hl7.FieldValue) string {
	switch val := v.(type) {
	case hl7.Scalar:
		return fmt.Sprintf("(len=%d)", len(val))
	case hl7.Repeated:
		return fmt.Sprintf("(%d repeats)", len(val))
	case hl7.Composite:
		return fmt.Sprintf("(%d components)", len(val))
	}
	return "(empty)"
}

func dumpValues(msg hl7.Message, schema *hl7.Schema, segFilter string) {
	for _, seg := range msg.Segments {
		if segFilter != "" && seg.ID != segFilter {
			continue
		}
		fmt.Printf("  %s:\n", seg.ID)
		for _, pos := range sortedPositions(seg.Fields) {
			v, _ := seg.Field(pos)
			label := fmt.Sprintf("field %d", pos)
			if name, ok := schema.FieldName(seg.ID, pos); ok {
				label = fmt.Sprintf("field %d (%s)", pos, name)
			}
			fmt.Printf("    %s: %s\n", label, renderValue(v))
		}
	}
}

func renderValue(v hl7.FieldValue) string {
	switch val := v.(type) {
	case hl7.Scalar:
		return string(val)
	case hl7.Repeated:
		parts := make([]string, 0, len(val))
		for i, rep := range val {
			parts = append(parts, fmt.Sprintf("[%d]=%s", i+1, renderValue(rep)))
		}
		return strings.Join(parts, " ")
	case hl7.Composite:
		parts := make([]string, 0, len(val))
		for _, pos := range sortedPositions(val) {
			parts = append(parts, fmt.Sprintf("C%d=%s", pos, renderValue(val[pos])))
		}
		return strings.Join(parts, " | ")
	}
	return "(empty)"
}

func dumpField(msg hl7.Message, spec string) {
	segID, pos, err := parseFieldSpec(spec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hl7dump: %v\n", err)
		os.Exit(2)
	}
	for _, seg := range msg.All(segID) {
		v, ok := seg.Field(pos)
		if !ok {
			fmt.Printf("  %s-%d: (not present)\n", segID, pos)
			continue
		}
		fmt.Printf("  %s-%d: %s\n", segID, pos, renderValue(v))
	}
}

// verifyField counts pipes on the raw segment lines, deliberately bypassing
// the structural parser, so an off-by-one in a feed's field mapping can be
// settled against the wire bytes themselves.
func verifyField(text, spec string) {
	segID, pos, err := parseFieldSpec(spec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hl7dump: %v\n", err)
		os.Exit(2)
	}
	for _, line := range strings.Split(text, "\r") {
		parts := strings.Split(line, "|")
		if parts[0] != segID {
			continue
		}
		total := len(parts) - 1
		if pos > total {
			fmt.Printf("  %s: has %d fields, requested field %d is beyond end\n", segID, total, pos)
			fmt.Printf("  need %d more pipe(s) to reach field %d\n", pos-total, pos)
			continue
		}
		fmt.Printf("  %s (%d fields total), field %d = %s\n", segID, total, pos, rawOrEmpty(parts[pos]))
		fmt.Println("  context:")
		fmt.Print(verifyContext(parts, pos))
	}
}

// verifyContext renders the two fields on either side of the target, with the
// target marked.
func verifyContext(parts []string, pos int) string {
	total := len(parts) - 1
	start := pos - 2
	if start < 1 {
		start = 1
	}
	end := pos + 2
	if end > total {
		end = total
	}
	var b strings.Builder
	for j := start; j <= end; j++ {
		marker := ""
		if j == pos {
			marker = " <<<"
		}
		fmt.Fprintf(&b, "    field %d: %s%s\n", j, rawOrEmpty(parts[j]), marker)
	}
	return b.String()
}

func rawOrEmpty(v string) string {
	if strings.TrimSpace(v) == "" {
		return "(empty)"
	}
	return v
}

func parseFieldSpec(spec string) (string, int, error) {
	parts := strings.SplitN(spec, ".", 2)
	if len(parts) != 2 || len(parts[0]) != 3 {
		return "", 0, fmt.Errorf("invalid field spec %q, want SEG.N (e.g. RXA.6)", spec)
	}
	pos, err := strconv.Atoi(parts[1])
	if err != nil || pos < 1 {
		return "", 0, fmt.Errorf("invalid field spec %q, want SEG.N (e.g. RXA.6)", spec)
	}
	return strings.ToUpper(parts[0]), pos, nil
}

func sortedPositions(fields map[int]hl7.FieldValue) []int {
	out := make([]int, 0, len(fields))
	for pos := range fields {
		out = append(out, pos)
	}
	sort.Ints(out)
	return out
}
