package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// MaxLine is the longest accepted encoded message, newline excluded.
const MaxLine = 64 * 1024

// ErrMalformed is returned for lines that do not follow the framing.
var ErrMalformed = errors.New("malformed message")

// Message is one decoded request or response.
type Message struct {
	Op     Op
	Fields []string
}

// New builds a message.
func New(op Op, fields ...string) Message {
	return Message{Op: op, Fields: fields}
}

// OK builds a success response.
func OK(fields ...string) Message { return New(OpOK, fields...) }

// Error builds an error response carrying kind and text.
func Error(kind, text string) Message {
	return New(OpError, kind+": "+text)
}

var escaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`, "\n", `\n`)

// Encode renders m with its trailing newline.
func (m Message) Encode() []byte {
	var b strings.Builder
	b.WriteString(strconv.Itoa(int(m.Op)))
	b.WriteByte('|')
	for _, f := range m.Fields {
		escaper.WriteString(&b, f)
		b.WriteByte('|')
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// Decode parses one line, with or without its newline.
func Decode(line string) (Message, error) {
	line = strings.TrimRight(line, "\r\n")
	var (
		parts []string
		cur   strings.Builder
	)
	for i := 0; i < len(line); i++ {
		switch ch := line[i]; ch {
		case '\\':
			i++
			if i == len(line) {
				return Message{}, fmt.Errorf("%w: dangling escape", ErrMalformed)
			}
			switch line[i] {
			case '\\':
				cur.WriteByte('\\')
			case '|':
				cur.WriteByte('|')
			case 'n':
				cur.WriteByte('\n')
			default:
				return Message{}, fmt.Errorf("%w: unknown escape \\%c", ErrMalformed, line[i])
			}
		case '|':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	// tolerate a missing final pipe
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	if len(parts) == 0 {
		return Message{}, fmt.Errorf("%w: empty line", ErrMalformed)
	}
	op, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Message{}, fmt.Errorf("%w: opcode %q", ErrMalformed, parts[0])
	}
	return Message{Op: Op(op), Fields: parts[1:]}, nil
}

// Reader decodes newline-framed messages from a stream.
type Reader struct {
	sc *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), MaxLine)
	return &Reader{sc: sc}
}

// Read returns the next message.  It returns io.EOF at the end of the
// stream and bufio.ErrTooLong for oversized lines, after which the reader
// is unusable.
func (r *Reader) Read() (Message, error) {
	for r.sc.Scan() {
		line := r.sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		return Decode(line)
	}
	if err := r.sc.Err(); err != nil {
		return Message{}, err
	}
	return Message{}, io.EOF
}

// Args reads typed fields of a message in order.  The first failure is
// kept and every later read returns a zero value, so a handler checks
// Err once after reading all its fields.
type Args struct {
	fields []string
	pos    int
	err    error
}

// Args returns a reader over m's fields.
func (m Message) Args() *Args { return &Args{fields: m.Fields} }

func (a *Args) next(name string) (string, bool) {
	if a.err != nil {
		return "", false
	}
	if a.pos >= len(a.fields) {
		a.err = fmt.Errorf("missing field %s", name)
		return "", false
	}
	v := a.fields[a.pos]
	a.pos++
	return v, true
}

func (a *Args) fail(name, raw, want string) {
	a.err = fmt.Errorf("field %s: %q is not %s", name, raw, want)
}

// String reads a text field.
func (a *Args) String(name string) string {
	v, _ := a.next(name)
	return v
}

// Uint reads an unsigned integer field.
func (a *Args) Uint(name string) uint64 {
	raw, ok := a.next(name)
	if !ok {
		return 0
	}
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		a.fail(name, raw, "an unsigned integer")
	}
	return v
}

// Int reads a signed integer field.
func (a *Args) Int(name string) int {
	raw, ok := a.next(name)
	if !ok {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		a.fail(name, raw, "an integer")
	}
	return v
}

// Float reads a decimal field.
func (a *Args) Float(name string) float64 {
	raw, ok := a.next(name)
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		a.fail(name, raw, "a number")
	}
	return v
}

// Bool reads a "1"/"0" field.
func (a *Args) Bool(name string) bool {
	raw, ok := a.next(name)
	if !ok {
		return false
	}
	switch strings.TrimSpace(raw) {
	case "1":
		return true
	case "0":
		return false
	}
	a.fail(name, raw, "0 or 1")
	return false
}

// Time reads a "YYYY-MM-DD HH:MM:SS" field.  An empty field yields the
// zero time when optional is true.
func (a *Args) Time(name string, optional bool) time.Time {
	raw, ok := a.next(name)
	if !ok {
		return time.Time{}
	}
	raw = strings.TrimSpace(raw)
	if raw == "" && optional {
		return time.Time{}
	}
	v, err := time.ParseInLocation(TimeLayout, raw, time.UTC)
	if err != nil {
		a.fail(name, raw, "a YYYY-MM-DD HH:MM:SS time")
	}
	return v
}

// Remaining reports how many fields are still unread.
func (a *Args) Remaining() int { return len(a.fields) - a.pos }

// Err returns the first failure.
func (a *Args) Err() error { return a.err }

// TimeLayout is the wire format for timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// Field formatting helpers.

func Uint(v uint64) string { return strconv.FormatUint(v, 10) }

func Int(v int) string { return strconv.Itoa(v) }

func Bool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func Float(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Money renders cents as a decimal with two places.
func Money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func Time(t time.Time) string { return t.UTC().Format(TimeLayout) }
