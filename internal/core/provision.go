package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// IdentifierLimiter is implemented by destinations that shorten long column
// names, such as PostgreSQL's 63-byte identifiers.
type IdentifierLimiter interface {
	MaxIdentifierLength() int
}

// Provisioner makes sure a station's table and id sequence exist before the
// first insert. Table creation and sequence setup happen at most once per
// table for the provisioner's lifetime; the column check runs on every call.
// The pipeline creates one per run.
type Provisioner struct {
	dest    Destination
	maxName int
	columns map[string]map[string]bool // table -> lowercased column names
}

// NewProvisioner returns a Provisioner backed by dest.
func NewProvisioner(dest Destination) *Provisioner {
	p := &Provisioner{dest: dest, columns: make(map[string]map[string]bool)}
	if l, ok := dest.(IdentifierLimiter); ok {
		p.maxName = l.MaxIdentifierLength()
	}
	return p
}

// Ensure creates the table for st from schema when it is missing, checks the
// table can hold schema, and seeds and binds the id sequence.
// Failing to bind the sequence is logged and does not fail the call.
func (p *Provisioner) Ensure(ctx context.Context, st Station, schema Schema) error {
	table := st.Key
	if have, ok := p.columns[table]; ok {
		return p.checkColumns(table, have, schema)
	}

	existing, err := p.dest.TableColumns(ctx, table)
	if err != nil {
		return fmt.Errorf("inspect table %s: %w", table, err)
	}
	if len(existing) == 0 {
		if err := p.dest.CreateTable(ctx, table, schema); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
		slog.Info("created table", "table", table, "columns", len(schema))
		existing = append([]string{ColumnID}, schema.Names()...)
	}

	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[strings.ToLower(clipIdentifier(c, p.maxName))] = true
	}
	if err := p.checkColumns(table, have, schema); err != nil {
		return err
	}

	seq := st.SequenceName()
	exists, err := p.dest.SequenceExists(ctx, table, seq)
	if err != nil {
		return fmt.Errorf("inspect sequence %s: %w", seq, err)
	}
	if !exists {
		if err := p.dest.CreateSequence(ctx, table, seq, st.SequenceStart()); err != nil {
			return fmt.Errorf("create sequence %s: %w", seq, err)
		}
		slog.Info("created sequence", "sequence", seq, "start", st.SequenceStart())
	} else {
		slog.Debug("sequence already exists", "sequence", seq)
	}

	if err := p.dest.BindSequence(ctx, table, seq); err != nil {
		slog.Error("could not bind id sequence", "table", table, "sequence", seq, "error", err)
	}

	p.columns[table] = have
	return nil
}

func (p *Provisioner) checkColumns(table string, have map[string]bool, schema Schema) error {
	var missing []string
	for _, c := range schema {
		if !have[strings.ToLower(clipIdentifier(c.Name, p.maxName))] {
			missing = append(missing, c.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: table %s lacks columns %s", ErrSchemaMismatch, table, strings.Join(missing, ", "))
	}
	return nil
}

// clipIdentifier shortens name to at most max bytes without splitting a
// character. max <= 0 means no limit.
func clipIdentifier(name string, max int) string {
	if max <= 0 || len(name) <= max {
		return name
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}
